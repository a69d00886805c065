package progression

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidCriteria = errors.New("invalid unlock criteria")
)
