package repository

import "errors"

// Sentinel kinds for repository errors. They are logged, never returned:
// callers always receive a usable (possibly empty) result.
var (
	ErrMalformedRecord = errors.New("malformed record")
)
