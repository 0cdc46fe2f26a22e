package main

import (
	"context"
	"fmt"

	"github.com/zolffix/internal/config"
	"github.com/zolffix/internal/logger"
	"github.com/zolffix/internal/metrics"
	"github.com/zolffix/internal/service"
	"github.com/zolffix/internal/storage"
	"github.com/zolffix/internal/storage/memory"
	"github.com/zolffix/internal/storage/mongo"
	"github.com/zolffix/internal/storage/redis"
	"github.com/zolffix/internal/storage/sqlite"
)

var cfg config.AppConfig

func bootstrap() error {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	if err := logger.Init(logger.Config{Debug: cfg.LogDebug, Dir: cfg.LogDir}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

// openStore 按 STORAGE_BACKEND 打开文档存储，并包一层耗时统计
func openStore(ctx context.Context) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)

	switch cfg.StorageBackend {
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendSQLite:
		store, err = sqlite.Open(cfg.DatabasePath)
	case config.BackendMongo:
		store, err = mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoCollection)
	case config.BackendRedis:
		store, err = redis.Connect(ctx, cfg.RedisURL)
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageBackend, err)
	}

	logger.Info("document store ready", "backend", cfg.StorageBackend)
	return metrics.InstrumentStore(store, cfg.StorageBackend), nil
}

func newApp(ctx context.Context) (*service.App, error) {
	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	var source service.QuoteSource
	if cfg.QuoteAPIKey != "" {
		source = service.NewAIQuoteSource(cfg.QuoteAPIKey, cfg.QuoteAPIBaseURL, cfg.QuoteModel)
	} else {
		logger.Warn("QUOTE_API_KEY not set, serving fallback quotes only")
	}

	return service.NewApp(service.AppOptions{
		Store:       store,
		QuoteSource: source,
		Location:    cfg.Timezone,
		JWTSecret:   cfg.JWTSecret,
		JWTTTL:      cfg.JWTTTL,
	}), nil
}
