package main

import (
	"fmt"
	"log/slog"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/internal/config"
	"github.com/aretw0/reticula/pkg/adapters/file"
	"github.com/aretw0/reticula/pkg/adapters/memory"
	"github.com/aretw0/reticula/pkg/adapters/redis"
	"github.com/aretw0/reticula/pkg/pipeline"
	"github.com/aretw0/reticula/pkg/ports"
)

// engineOptions translates cfg into engine options. The returned close
// function releases the cache connection.
func engineOptions(cfg config.Config, logger *slog.Logger, hooks *pipeline.Hooks) ([]reticula.Option, func() error, error) {
	opts := []reticula.Option{
		reticula.WithLogger(logger),
		reticula.WithWorkers(cfg.Workers),
		reticula.WithConflictThreshold(cfg.ConflictThreshold),
	}
	if cfg.Outgroup != "" {
		opts = append(opts, reticula.WithOutgroup(cfg.Outgroup))
	}
	if hooks != nil {
		opts = append(opts, reticula.WithHooks(*hooks))
	}

	store, err := openCache(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if store.cache != nil {
		opts = append(opts, reticula.WithCache(store.cache))
	}
	if store.locker != nil {
		opts = append(opts, reticula.WithLocker(store.locker, store.lockTTL))
	}
	return opts, store.close, nil
}

// cacheStore is the configured result cache and its optional lock.
type cacheStore struct {
	cache   ports.ResultCache
	locker  ports.DistributedLocker
	lockTTL time.Duration
	close   func() error
}

// openCache builds the backend named by cfg. cache is nil for "none".
func openCache(cfg config.Config, logger *slog.Logger) (*cacheStore, error) {
	store := &cacheStore{close: func() error { return nil }}
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		store.cache = memory.NewCache()
	case config.BackendFile:
		store.cache = file.NewCache(cfg.Cache.Dir)
	case config.BackendRedis:
		ttl, err := cfg.Cache.TTLDuration()
		if err != nil {
			return nil, err
		}
		if store.lockTTL, err = cfg.Cache.LockDuration(); err != nil {
			return nil, err
		}
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		cache := redis.NewFromClient(client, redis.WithPrefix(cfg.Cache.Prefix), redis.WithTTL(ttl))
		store.cache = cache
		store.locker = redis.NewLocker(client, cfg.Cache.Prefix)
		store.close = cache.Close
		logger.Debug("using redis cache", "addr", cfg.Cache.Addr, "db", cfg.Cache.DB)
	case "", config.BackendNone:
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	return store, nil
}
