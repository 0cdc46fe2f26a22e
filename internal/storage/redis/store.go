package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zolffix/internal/logger"
	"github.com/zolffix/internal/storage"
)

// ChangesChannel 是广播文档变更的频道
const ChangesChannel = "zolffix:changes"

type changeMessage struct {
	Key   string             `json:"key"`
	Kind  storage.ChangeKind `json:"kind"`
	Value []byte             `json:"value,omitempty"`
}

// Store 使用 Redis 字符串保存文档，通过 pub/sub 推送变更，多实例部署时可互相感知。
// 每个 Store 只持有一个订阅连接，按前缀分发给各个 Watch 回调。
type Store struct {
	client    *redis.Client
	namespace string
	watchers  *storage.Watchers

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

// Connect 解析 URL 并确认连接可用
func Connect(ctx context.Context, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return New(client, ""), nil
}

// New 使用已有客户端构造 Store，namespace 会加在所有键前
func New(client *redis.Client, namespace string) *Store {
	return &Store{client: client, namespace: namespace, watchers: storage.NewWatchers()}
}

func (s *Store) redisKey(key string) string {
	return s.namespace + key
}

func (s *Store) channel() string {
	return s.namespace + ChangesChannel
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	s.publish(ctx, changeMessage{Key: key, Kind: storage.ChangeSet, Value: value})
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	removed, err := s.client.Del(ctx, s.redisKey(key)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if removed > 0 {
		s.publish(ctx, changeMessage{Key: key, Kind: storage.ChangeDelete})
	}
	return nil
}

// publish 广播变更。写入已经成功，广播失败只记录日志，其他实例在下次加载时读到新值。
func (s *Store) publish(ctx context.Context, msg changeMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Warn("encode redis change failed", "key", msg.Key, "err", err)
		return
	}
	if err := s.client.Publish(ctx, s.channel(), payload).Err(); err != nil {
		logger.Warn("redis publish failed", "key", msg.Key, "err", err)
	}
}

// Keys 通过 SCAN 遍历，避免 KEYS 阻塞服务端
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(s.redisKey(prefix)) + "*"

	keys := make([]string, 0)
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}

	slices.Sort(keys)
	return slices.Compact(keys), nil
}

// Watch 注册前缀回调。首次调用时订阅变更频道，订阅确认后才返回。
func (s *Store) Watch(ctx context.Context, prefix string, fn storage.ChangeFunc) error {
	if err := s.subscribe(ctx); err != nil {
		return err
	}
	s.watchers.Add(ctx, prefix, fn)
	return nil
}

func (s *Store) subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pubsub != nil {
		return nil
	}

	subCtx, cancel := context.WithCancel(context.Background())
	pubsub := s.client.Subscribe(subCtx, s.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	s.pubsub, s.cancel = pubsub, cancel
	go s.dispatch(subCtx, pubsub)
	return nil
}

func (s *Store) dispatch(ctx context.Context, pubsub *redis.PubSub) {
	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var change changeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				logger.Debug("skip malformed redis change", "err", err)
				continue
			}
			s.watchers.Publish(storage.Change{Key: change.Key, Kind: change.Kind, Value: change.Value})
		}
	}
}

func (s *Store) Close() error {
	s.mu.Lock()
	if s.pubsub != nil {
		s.cancel()
		_ = s.pubsub.Close()
		s.pubsub = nil
	}
	s.mu.Unlock()
	return s.client.Close()
}

func escapeGlob(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return replacer.Replace(value)
}
