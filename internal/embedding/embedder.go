// Package embedding turns item text into vectors through a pluggable provider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/vector"
)

// ErrBadShape is returned when a provider response cannot be reduced to a single
// vector. It is never retried.
var ErrBadShape = errors.New("unusable embedding shape")

// Tensor is raw provider output: row-major Values with the given Shape.
type Tensor struct {
	Shape  []int
	Values []float32
}

// Provider is a raw embedding backend. It may return a sentence vector (1-D) or
// token-level rows (2-D).
type Provider interface {
	Extract(ctx context.Context, text string) (Tensor, error)
	Close() error
}

// Embedder produces one vector per text.
type Embedder interface {
	Embed(ctx context.Context, text string) (vector.Vector, error)
}

// ProviderError reports that no usable embedding was obtained.
type ProviderError struct {
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Config selects and tunes the embedding backend.
type Config struct {
	Backend    string // huggingface | onnx | mock
	Endpoint   string
	Provider   string
	Model      string
	Token      string
	Timeout    time.Duration
	Retries    int
	Backoff    time.Duration
	Dimensions int
	ModelPath  string
	VocabPath  string
	MaxTokens  int
	OutputName string
	MemoSize   int
}

// Option configures embedding components.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the configured provider, wraps it in a retrying Adapter, and puts
// the optional memo in front. The returned Provider must be closed by the caller.
func New(cfg Config, opts ...Option) (Embedder, Provider, error) {
	p, err := NewProvider(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	var e Embedder = NewAdapter(p, cfg, opts...)
	if cfg.MemoSize > 0 {
		e = NewMemo(e, cfg.MemoSize)
	}
	return e, p, nil
}
