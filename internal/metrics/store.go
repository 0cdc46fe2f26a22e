package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zolffix/internal/storage"
)

// InstrumentedStore 为任意后端记录操作耗时
type InstrumentedStore struct {
	storage.Store
	backend string
}

// InstrumentStore 包装 store
func InstrumentStore(store storage.Store, backend string) *InstrumentedStore {
	return &InstrumentedStore{Store: store, backend: backend}
}

func (s *InstrumentedStore) timer(operation string) *prometheus.Timer {
	return prometheus.NewTimer(StoreOperationDuration.WithLabelValues(operation, s.backend))
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	defer s.timer("get").ObserveDuration()
	return s.Store.Get(ctx, key)
}

func (s *InstrumentedStore) Set(ctx context.Context, key string, value []byte) error {
	defer s.timer("set").ObserveDuration()
	return s.Store.Set(ctx, key, value)
}

func (s *InstrumentedStore) Delete(ctx context.Context, key string) error {
	defer s.timer("delete").ObserveDuration()
	return s.Store.Delete(ctx, key)
}

func (s *InstrumentedStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	defer s.timer("keys").ObserveDuration()
	return s.Store.Keys(ctx, prefix)
}
