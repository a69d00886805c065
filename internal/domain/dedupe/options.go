package dedupe

type options struct {
	maxSize int
}

// Option applies a configuration option to NewInMemoryDeduper.
type Option func(*options)

// WithMaxSize sets the maximum number of IDs to remember.
// A non-positive size disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(o *options) {
		o.maxSize = maxSize
	}
}
