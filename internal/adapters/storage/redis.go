package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout = 5 * time.Second
	redisPingTimeout = 5 * time.Second
)

// Redis keeps keys in a Redis database with plain GET/SET.
type Redis struct {
	rdb *goredis.Client
}

// NewRedis connects to addr and verifies the connection with PING.
func NewRedis(ctx context.Context, addr string, db int) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: redis backend needs an address", ErrUnavailable)
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: redisDialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, unavailable("ping", addr, err)
	}
	return &Redis{rdb: rdb}, nil
}

// Client exposes the underlying client so other adapters can share it.
func (r *Redis) Client() *goredis.Client { return r.rdb }

// Get implements Storage.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", key, err)
	}
	return raw, nil
}

// Set implements Storage.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// Close implements Storage.
func (r *Redis) Close() error { return r.rdb.Close() }
