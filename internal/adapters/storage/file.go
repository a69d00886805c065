package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	dirPermission  = 0o700
	filePermission = 0o600
)

// File stores each key in its own file under a directory. Writes go to a
// temp file first and are renamed into place.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile returns a directory-backed store, creating dir if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: file backend needs a directory", ErrUnavailable)
	}
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return nil, unavailable("mkdir", dir, err)
	}
	return &File{dir: dir}, nil
}

// path hex-encodes the key so any key maps to a safe file name.
func (f *File) path(key string) string {
	return filepath.Join(f.dir, hex.EncodeToString([]byte(key))+".json")
}

// Get implements Storage.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	raw, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", key, err)
	}
	return raw, nil
}

// Set implements Storage.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return unavailable("set", key, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return unavailable("set", key, err)
	}
	if err := tmp.Chmod(filePermission); err != nil {
		_ = tmp.Close()
		return unavailable("set", key, err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable("set", key, err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// Close implements Storage.
func (f *File) Close() error { return nil }
