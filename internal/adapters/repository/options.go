package repository

import (
	"github.com/okian/ascend/pkg/clock"
	"github.com/okian/ascend/pkg/logger"
)

type options struct {
	logger logger.Logger
	clock  clock.Clock
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithLogger sets the logger used for degradation warnings.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source for unlock timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func buildOptions(name string, opts []Option) options {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named(name)
	}
	return o
}
