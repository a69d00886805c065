package main

import (
	"context"
	"fmt"

	"github.com/okian/ascend/internal/adapters/storage"
	service "github.com/okian/ascend/internal/app"
	"github.com/okian/ascend/internal/config"
	"github.com/okian/ascend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

// loadConfig loads configuration and applies its log level.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// openStorage opens the configured medium.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	st, err := storage.Open(ctx, storage.Settings{
		Backend:    cfg.StorageBackend,
		Dir:        cfg.StorageDir,
		SQLitePath: cfg.SQLitePath,
		RedisAddr:  cfg.RedisAddr,
		RedisDB:    cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage %q: %w", cfg.StorageBackend, err)
	}
	return st, nil
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config, st storage.Storage) []service.Option {
	return []service.Option{
		service.WithLogger(logger.Named("service")),
		service.WithStorage(st),
		service.WithInstallationID(cfg.InstallationID),
		service.WithUnlockCriteria(cfg.EffectiveCriteria()),
		service.WithNotificationTTL(cfg.NotificationTTL),
		service.WithRecentWindow(cfg.RecentWindow),
		service.WithWorkerCount(cfg.NotifyWorkers),
		service.WithQueueSize(cfg.NotifyQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
	}
}

// notifyClient returns the redis client used to publish unlock notices, or
// nil when no channel is configured. A redis storage backend shares its
// client; otherwise a dedicated client is returned with owned set.
func notifyClient(cfg *config.Config, st storage.Storage) (client *goredis.Client, owned bool) {
	if cfg.NotifyRedisChannel == "" {
		return nil, false
	}
	if r, ok := st.(*storage.Redis); ok {
		return r.Client(), false
	}
	return goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB}), true
}
