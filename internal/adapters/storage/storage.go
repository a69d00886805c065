// Package storage provides the durable key-value medium the engine persists
// into. Keys hold whole serialized records; there are no partial updates.
//
// Backends: in-memory, one-file-per-key directory, SQLite via gorm, and Redis.
// None coordinate writers across processes: concurrent writers to the same
// key resolve as last-write-wins.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Storage is a durable key-value medium.
type Storage interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound when the key is absent and ErrUnavailable when the
	// medium cannot be read.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key.
	// Returns ErrUnavailable when the medium cannot be written.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases the medium.
	Close() error
}

// Settings selects and configures a backend.
type Settings struct {
	Backend    string
	Dir        string
	SQLitePath string
	RedisAddr  string
	RedisDB    int
}

// Open builds the backend named by s.Backend.
func Open(ctx context.Context, s Settings) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return NewFile(s.Dir)
	case BackendSQLite:
		return NewSQLite(s.SQLitePath)
	case BackendRedis:
		return NewRedis(ctx, s.RedisAddr, s.RedisDB)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}
}

// unavailable wraps a medium failure as ErrUnavailable.
func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %v", ErrUnavailable, op, key, err)
}
