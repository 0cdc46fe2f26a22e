package storage

import (
	"context"
	"strings"
	"sync"
)

// Watchers 是进程内的变更广播器，供没有原生订阅能力的本地后端复用。
type Watchers struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
}

type subscription struct {
	prefix string
	fn     ChangeFunc
}

// NewWatchers 构造 Watchers
func NewWatchers() *Watchers {
	return &Watchers{subs: make(map[int]subscription)}
}

// Add 注册回调，ctx 结束时自动注销
func (w *Watchers) Add(ctx context.Context, prefix string, fn ChangeFunc) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = subscription{prefix: prefix, fn: fn}
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}()
}

// Publish 同步通知所有匹配前缀的回调
func (w *Watchers) Publish(change Change) {
	w.mu.RLock()
	matched := make([]ChangeFunc, 0, len(w.subs))
	for _, sub := range w.subs {
		if strings.HasPrefix(change.Key, sub.prefix) {
			matched = append(matched, sub.fn)
		}
	}
	w.mu.RUnlock()

	for _, fn := range matched {
		fn(change)
	}
}
