// Package indexer reconciles the catalog with the vector cache and runs precompute.
package indexer

import (
	"time"

	"go.uber.org/zap"
)

// DefaultPairPhrase introduces pair names in augmented descriptions.
const DefaultPairPhrase = "Commonly paired with"

// Option configures a Builder or Precomputer.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	dimensions int
	delay      time.Duration
	pairPhrase string
}

// WithLogger sets a logger for progress and resolution events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDimensions fixes the expected vector length. Zero means infer it from the cache.
func WithDimensions(n int) Option {
	return func(o *options) { o.dimensions = n }
}

// WithDelay sets the pause after each precomputed item.
func WithDelay(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

// WithPairPhrase sets the phrase that introduces pair names.
func WithPairPhrase(p string) Option {
	return func(o *options) {
		if p != "" {
			o.pairPhrase = p
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:     zap.NewNop(),
		delay:      120 * time.Millisecond,
		pairPhrase: DefaultPairPhrase,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
