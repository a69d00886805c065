package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound       = errors.New("key not found")
	ErrUnavailable    = errors.New("storage unavailable")
	ErrUnknownBackend = errors.New("unknown storage backend")
)
