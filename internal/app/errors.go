package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidLevel = errors.New("invalid level")
	ErrNotStarted   = errors.New("service not started")
)
