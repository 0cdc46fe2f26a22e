// Package storage 定义文档存储的抽象。本地（内存/SQLite）与远端（MongoDB/Redis）
// 后端实现同一套 get/set/delete/watch 契约，业务层无需关心具体实现。
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound 在键不存在时返回
var ErrNotFound = errors.New("document not found")

// ChangeKind 标记变更类型
type ChangeKind string

const (
	ChangeSet    ChangeKind = "set"
	ChangeDelete ChangeKind = "delete"
)

// Change 描述一次文档变更，Value 在删除时为空
type Change struct {
	Key   string
	Kind  ChangeKind
	Value []byte
}

// ChangeFunc 在匹配前缀的文档发生变更后被调用
type ChangeFunc func(Change)

// Store 是持久化适配器。写入采用最后写入者获胜，不做版本控制。
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete 对不存在的键是幂等的
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Watch 为前缀注册变更回调，ctx 结束后停止通知
	Watch(ctx context.Context, prefix string, fn ChangeFunc) error
	Close() error
}

// GetJSON 读取并解码文档，found 为 false 表示键不存在
func GetJSON(ctx context.Context, store Store, key string, dst any) (bool, error) {
	raw, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON 编码并写入文档
func SetJSON(ctx context.Context, store Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if err := store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// DeletePrefix 删除前缀下的全部文档
func DeletePrefix(ctx context.Context, store Store, prefix string) error {
	keys, err := store.Keys(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list %s: %w", prefix, err)
	}
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// 文档键布局
const (
	AccountsIndexKey = "accounts/index"

	CollectionHabits      = "habits"
	CollectionJournal     = "journal"
	CollectionSavedQuotes = "savedQuotes"
	CollectionLikedQuotes = "likedQuotes"
	CollectionProfile     = "profile"
)

// UserPrefix 返回用户全部文档的公共前缀
func UserPrefix(userID string) string {
	return "users/" + userID + "/"
}

// UserKey 返回用户某个集合的键
func UserKey(userID, collection string) string {
	return UserPrefix(userID) + collection
}

// NotifiedKey 返回习惯提醒的已通知标记键
func NotifiedKey(userID, habitID string) string {
	return UserPrefix(userID) + "notified/" + habitID
}

// UserIDFromKey 从 users/<id>/... 形式的键中取出用户 ID
func UserIDFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, "users/")
	if !ok {
		return "", false
	}
	id, _, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
