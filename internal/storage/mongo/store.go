package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/zolffix/internal/logger"
	"github.com/zolffix/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection 是文档集合的默认名称
const DefaultCollection = "documents"

type document struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		Key string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *document `bson:"fullDocument"`
}

// Store 把每个键存为 MongoDB 中的一条文档，远端变更通过 change stream 推送。
// 每个 Store 最多打开一个 change stream，按前缀分发给各个 Watch 回调。
// 单机部署不支持 change stream，此时退化为进程内通知。
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	watchers   *storage.Watchers

	mu        sync.Mutex
	started   bool
	streaming bool
	cancel    context.CancelFunc
}

// Connect 连接 MongoDB 并构造 Store
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return New(client, client.Database(database).Collection(collection)), nil
}

// New 使用已有连接构造 Store
func New(client *mongo.Client, collection *mongo.Collection) *Store {
	return &Store{client: client, collection: collection, watchers: storage.NewWatchers()}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc.Value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	doc := document{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}

	if !s.isStreaming() {
		s.watchers.Publish(storage.Change{Key: key, Kind: storage.ChangeSet, Value: value})
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.DeletedCount > 0 && !s.isStreaming() {
		s.watchers.Publish(storage.Change{Key: key, Kind: storage.ChangeDelete})
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find keys: %w", err)
	}
	defer cursor.Close(ctx)

	keys := make([]string, 0)
	for cursor.Next(ctx) {
		var doc struct {
			Key string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode key: %w", err)
		}
		keys = append(keys, doc.Key)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

// Watch 注册前缀回调，首次调用时尝试打开 change stream
func (s *Store) Watch(ctx context.Context, prefix string, fn storage.ChangeFunc) error {
	s.startStream()
	s.watchers.Add(ctx, prefix, fn)
	return nil
}

func (s *Store) isStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

func (s *Store) startStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := s.collection.Watch(streamCtx, pipeline, opts)
	if err != nil {
		cancel()
		logger.Debug("mongo change stream unavailable, using in-process notifications", "err", err)
		return
	}

	s.streaming = true
	s.cancel = cancel
	go s.dispatch(streamCtx, stream)
}

func (s *Store) dispatch(ctx context.Context, stream *mongo.ChangeStream) {
	defer stream.Close(context.Background())
	for stream.Next(ctx) {
		var event changeEvent
		if err := stream.Decode(&event); err != nil {
			continue
		}
		if change, ok := toChange(event); ok {
			s.watchers.Publish(change)
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		logger.Warn("mongo change stream stopped", "err", err)
	}
	s.mu.Lock()
	s.streaming = false
	s.mu.Unlock()
}

func toChange(event changeEvent) (storage.Change, bool) {
	switch event.OperationType {
	case "delete":
		return storage.Change{Key: event.DocumentKey.Key, Kind: storage.ChangeDelete}, true
	case "insert", "update", "replace":
		if event.FullDocument == nil {
			return storage.Change{}, false
		}
		return storage.Change{
			Key:   event.DocumentKey.Key,
			Kind:  storage.ChangeSet,
			Value: event.FullDocument.Value,
		}, true
	default:
		return storage.Change{}, false
	}
}

func (s *Store) Close() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
