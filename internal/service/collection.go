package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/zolffix/internal/logger"
	"github.com/zolffix/internal/storage"
)

// collection 维护每个用户某个集合的内存快照，读取走快照，写入先落盘再替换快照。
// 首次加载前为该键注册 Watch。变更通知只作废快照，下次读取从存储重新加载，
// 迟到的旧通知因此不会覆盖更新的写入。
type collection[T any] struct {
	store storage.Store
	name  string
	clone func(T) T
	// watchCtx 结束后停止接收变更通知
	watchCtx context.Context

	// mu 串行化写入，cacheMu 只保护快照本身，变更回调只会获取 cacheMu
	mu      sync.Mutex
	cacheMu sync.RWMutex
	cache   map[string][]T
	watched map[string]bool
	// gen 在每次作废时递增，读取期间发生变化的结果不进入快照
	gen map[string]uint64
	// inflight 是当前正在写入的内容，用于识别同步回显
	inflight map[string][]byte
}

// maxReloads 限制并发变更下单次加载的重试次数
const maxReloads = 3

func newCollection[T any](watchCtx context.Context, store storage.Store, name string, clone func(T) T) *collection[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &collection[T]{
		store:    store,
		name:     name,
		clone:    clone,
		watchCtx: watchCtx,
		cache:    make(map[string][]T),
		watched:  make(map[string]bool),
		gen:      make(map[string]uint64),
		inflight: make(map[string][]byte),
	}
}

func (c *collection[T]) copyOf(items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = c.clone(item)
	}
	return out
}

// load 返回用户集合的拷贝
func (c *collection[T]) load(ctx context.Context, userID string) ([]T, error) {
	key := storage.UserKey(userID, c.name)

	c.cacheMu.Lock()
	items, ok := c.cache[key]
	needWatch := !c.watched[key]
	c.watched[key] = true
	c.cacheMu.Unlock()
	if ok {
		return c.copyOf(items), nil
	}
	if needWatch {
		c.watch(key)
	}

	var stored []T
	for attempt := 0; ; attempt++ {
		c.cacheMu.RLock()
		gen := c.gen[key]
		c.cacheMu.RUnlock()

		stored = nil
		if _, err := storage.GetJSON(ctx, c.store, key, &stored); err != nil {
			return nil, fmt.Errorf("load %s: %w", c.name, err)
		}
		if stored == nil {
			stored = []T{}
		}

		c.cacheMu.Lock()
		if current, ok := c.cache[key]; ok {
			c.cacheMu.Unlock()
			return c.copyOf(current), nil
		}
		if c.gen[key] == gen {
			c.cache[key] = stored
			c.cacheMu.Unlock()
			break
		}
		c.cacheMu.Unlock()

		if attempt+1 >= maxReloads {
			break
		}
	}
	return c.copyOf(stored), nil
}

func (c *collection[T]) watch(key string) {
	err := c.store.Watch(c.watchCtx, key, func(change storage.Change) {
		if change.Key != key {
			return
		}
		c.applyChange(change)
	})
	if err != nil {
		logger.Warn("watch collection failed", "key", key, "err", err)
		c.cacheMu.Lock()
		c.watched[key] = false
		c.cacheMu.Unlock()
	}
}

// applyChange 作废快照。与正在写入的内容相同的通知是本次写入的回显，直接忽略。
func (c *collection[T]) applyChange(change storage.Change) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	if pending, ok := c.inflight[change.Key]; ok && change.Kind == storage.ChangeSet && bytes.Equal(pending, change.Value) {
		return
	}
	delete(c.cache, change.Key)
	c.gen[change.Key]++
}

// update 在写锁内读取快照、应用 fn 并写回存储，写入成功后才替换快照。
// 写入期间快照被作废时不替换，下次读取重新加载。
// fn 返回 errSkipWrite 时不写入。
func (c *collection[T]) update(ctx context.Context, userID string, fn func([]T) ([]T, error)) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	next, err := fn(current)
	if err != nil {
		if errors.Is(err, errSkipWrite) {
			return current, nil
		}
		return nil, err
	}

	key := storage.UserKey(userID, c.name)
	raw, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.name, err)
	}

	c.cacheMu.Lock()
	gen := c.gen[key]
	c.inflight[key] = raw
	c.cacheMu.Unlock()

	err = c.store.Set(ctx, key, raw)

	c.cacheMu.Lock()
	delete(c.inflight, key)
	if err == nil {
		if c.gen[key] == gen {
			c.cache[key] = c.copyOf(next)
		} else {
			delete(c.cache, key)
		}
	}
	c.cacheMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("save %s: %w", c.name, err)
	}
	return c.copyOf(next), nil
}

// forget 丢弃用户快照，下次读取重新加载
func (c *collection[T]) forget(userID string) {
	key := storage.UserKey(userID, c.name)
	c.cacheMu.Lock()
	delete(c.cache, key)
	c.gen[key]++
	c.cacheMu.Unlock()
}

// indexOf 按 id 查找元素下标
func indexOf[T any](items []T, id func(T) string, want string) int {
	return slices.IndexFunc(items, func(item T) bool { return id(item) == want })
}
