package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zolffix/internal/db"
	"github.com/zolffix/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store 基于 gorm + SQLite 的文档存储，对应本地持久化。
// SQLite 没有订阅能力，变更通知在进程内广播。
type Store struct {
	db       *gorm.DB
	watchers *storage.Watchers
}

// New 构造 Store，gdb 需已完成迁移
func New(gdb *gorm.DB) *Store {
	return &Store{db: gdb, watchers: storage.NewWatchers()}
}

// Open 打开数据库文件并构造 Store
func Open(path string) (*Store, error) {
	gdb, err := db.Open(path, true)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return New(gdb), nil
}

// Get 读取文档
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var doc db.Document
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc.Value, nil
}

// Set 以 upsert 方式写入文档
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now()
	doc := db.Document{Key: key, Value: value, CreatedAt: now, UpdatedAt: now}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&doc).Error; err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	s.watchers.Publish(storage.Change{Key: key, Kind: storage.ChangeSet, Value: value})
	return nil
}

// Delete 删除文档，幂等
func (s *Store) Delete(ctx context.Context, key string) error {
	result := s.db.WithContext(ctx).Where("key = ?", key).Delete(&db.Document{})
	if result.Error != nil {
		return fmt.Errorf("delete document: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.watchers.Publish(storage.Change{Key: key, Kind: storage.ChangeDelete})
	}
	return nil
}

// Keys 列出前缀下的键
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Model(&db.Document{}).
		Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("key ASC").
		Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("list document keys: %w", err)
	}
	return keys, nil
}

// Watch 注册进程内变更回调
func (s *Store) Watch(ctx context.Context, prefix string, fn storage.ChangeFunc) error {
	s.watchers.Add(ctx, prefix, fn)
	return nil
}

// Close 关闭底层连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
