// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/ascend/internal/domain/progression"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StorageBackend selects the durable medium: memory, file, sqlite or redis.
	StorageBackend string `koanf:"storage_backend"`

	// StorageDir is the directory of the file backend.
	StorageDir string `koanf:"storage_dir"`

	// SQLitePath is the database file of the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// RedisAddr and RedisDB address the redis backend and notifier.
	RedisAddr string `koanf:"redis_addr"`
	RedisDB   int    `koanf:"redis_db"`

	// InstallationID namespaces every storage key. Generated and persisted when empty.
	InstallationID string `koanf:"installation_id"`

	// NotificationTTL is how long a surfaced unlock stays visible.
	NotificationTTL time.Duration `koanf:"notification_ttl"`

	// RecentWindow is the default window of GET /badges/recent.
	RecentWindow time.Duration `koanf:"recent_window"`

	// NotifyQueueSize bounds the unlock notice queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// NotifyWorkers sets the number of notice dispatch workers.
	NotifyWorkers int `koanf:"notify_workers"`

	// NotifyRedisChannel enables publishing notices on a redis channel.
	NotifyRedisChannel string `koanf:"notify_redis_channel"`

	// DedupeSize sets the size of the request_id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// Criteria overrides the built-in unlock thresholds. Empty means defaults.
	Criteria progression.Criteria `koanf:"criteria"`
}

var backends = map[string]struct{}{
	"memory": {},
	"file":   {},
	"sqlite": {},
	"redis":  {},
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		StorageBackend:  "file",
		StorageDir:      ".ascend",
		SQLitePath:      "ascend.db",
		RedisAddr:       "localhost:6379",
		NotificationTTL: 10 * time.Second,
		RecentWindow:    30 * time.Second,
		NotifyQueueSize: 1_024,
		NotifyWorkers:   runtime.NumCPU(),
		DedupeSize:      10_000,
	}
}

// EffectiveCriteria returns the configured criteria, or the defaults when none are set.
func (c *Config) EffectiveCriteria() progression.Criteria {
	if len(c.Criteria) == 0 {
		return progression.DefaultCriteria()
	}
	return c.Criteria
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, ok := backends[strings.ToLower(c.StorageBackend)]; !ok {
		return fmt.Errorf("%w: unknown storage_backend %q", ErrInvalidConfig, c.StorageBackend)
	}
	if c.NotificationTTL <= 0 {
		return fmt.Errorf("%w: notification_ttl must be positive", ErrInvalidConfig)
	}
	if c.RecentWindow <= 0 {
		return fmt.Errorf("%w: recent_window must be positive", ErrInvalidConfig)
	}
	if c.NotifyQueueSize <= 0 || c.NotifyWorkers <= 0 {
		return fmt.Errorf("%w: notify_queue_size and notify_workers must be positive", ErrInvalidConfig)
	}
	if c.DedupeSize <= 0 {
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	}
	if err := c.EffectiveCriteria().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
