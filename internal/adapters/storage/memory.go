package storage

import (
	"context"
	"errors"
	"sync"
)

// Memory is an in-process Storage. It survives only as long as the process.
type Memory struct {
	mu      sync.RWMutex
	data    map[string][]byte
	failGet bool
	failSet bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements Storage.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failGet {
		return nil, unavailable("get", key, errors.New("reads disabled"))
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set implements Storage.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return unavailable("set", key, errors.New("quota exceeded"))
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

// Close implements Storage.
func (m *Memory) Close() error { return nil }

// SetFailures makes subsequent reads and/or writes fail with ErrUnavailable.
// It simulates a disabled or full medium.
func (m *Memory) SetFailures(reads, writes bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGet = reads
	m.failSet = writes
}
