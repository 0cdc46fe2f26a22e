package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/zolffix/internal/storage"
)

// Store 是进程内的文档存储，对应客户端本地存储，也用于测试。
type Store struct {
	mu       sync.RWMutex
	docs     map[string][]byte
	watchers *storage.Watchers
}

// NewStore 构造空的内存存储
func NewStore() *Store {
	return &Store{docs: make(map[string][]byte), watchers: storage.NewWatchers()}
}

// Get 返回键对应文档的拷贝
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.docs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return slices.Clone(value), nil
}

// Set 写入文档并同步通知订阅者
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.docs[key] = slices.Clone(value)
	s.mu.Unlock()

	s.watchers.Publish(storage.Change{Key: key, Kind: storage.ChangeSet, Value: slices.Clone(value)})
	return nil
}

// Delete 删除文档，不存在时不做任何事
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	_, existed := s.docs[key]
	delete(s.docs, key)
	s.mu.Unlock()

	if existed {
		s.watchers.Publish(storage.Change{Key: key, Kind: storage.ChangeDelete})
	}
	return nil
}

// Keys 返回前缀下的全部键，按字典序排列
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for key := range s.docs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Watch 注册变更回调
func (s *Store) Watch(ctx context.Context, prefix string, fn storage.ChangeFunc) error {
	s.watchers.Add(ctx, prefix, fn)
	return nil
}

// Close 内存存储无需释放资源
func (s *Store) Close() error {
	return nil
}
