package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/metrics"
	"github.com/hyperjump/osusume/internal/vector"
)

const (
	defaultRetries = 3
	defaultBackoff = 2 * time.Second
)

// Adapter calls a Provider with linear backoff and reduces its output to one vector.
type Adapter struct {
	provider Provider
	retries  int
	backoff  time.Duration
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewAdapter wraps p. Retries below 1 and a negative Backoff take the defaults.
func NewAdapter(p Provider, cfg Config, opts ...Option) *Adapter {
	o := buildOptions(opts)
	retries := cfg.Retries
	if retries < 1 {
		retries = defaultRetries
	}
	backoff := cfg.Backoff
	if backoff < 0 {
		backoff = defaultBackoff
	}
	return &Adapter{
		provider: p,
		retries:  retries,
		backoff:  backoff,
		logger:   o.logger,
		sleep:    sleepContext,
	}
}

// Embed returns the embedding for text. After failed attempt i it waits backoff*i
// before trying again. Unusable shapes fail at once.
func (a *Adapter) Embed(ctx context.Context, text string) (vector.Vector, error) {
	var lastErr error
	for attempt := 1; attempt <= a.retries; attempt++ {
		start := time.Now()
		t, err := a.provider.Extract(ctx, text)
		if err == nil {
			v, rerr := Reduce(t)
			if rerr != nil {
				metrics.RecordProviderCall("bad_shape", time.Since(start))
				metrics.EmbedFailures.Inc()
				return nil, &ProviderError{Attempts: attempt, Err: rerr}
			}
			metrics.RecordProviderCall("ok", time.Since(start))
			return v, nil
		}
		if errors.Is(err, ErrBadShape) {
			metrics.RecordProviderCall("bad_shape", time.Since(start))
			metrics.EmbedFailures.Inc()
			return nil, &ProviderError{Attempts: attempt, Err: err}
		}
		metrics.RecordProviderCall("error", time.Since(start))
		lastErr = err
		a.logger.Warn("embedding attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", a.retries),
			zap.Error(err))

		if attempt == a.retries {
			break
		}
		if err := a.sleep(ctx, a.backoff*time.Duration(attempt)); err != nil {
			metrics.EmbedFailures.Inc()
			return nil, &ProviderError{Attempts: attempt, Err: err}
		}
	}
	metrics.EmbedFailures.Inc()
	return nil, &ProviderError{Attempts: a.retries, Err: lastErr}
}

// Reduce turns provider output into a single vector: 1-D is returned as is,
// 2-D token rows are averaged.
func Reduce(t Tensor) (vector.Vector, error) {
	n := 1
	for _, d := range t.Shape {
		if d <= 0 {
			return nil, fmt.Errorf("%w: shape %v", ErrBadShape, t.Shape)
		}
		n *= d
	}
	if len(t.Shape) == 0 || len(t.Values) == 0 || len(t.Values) != n {
		return nil, fmt.Errorf("%w: shape %v with %d values", ErrBadShape, t.Shape, len(t.Values))
	}

	var v vector.Vector
	switch len(t.Shape) {
	case 1:
		v = vector.Vector(t.Values).Clone()
	case 2:
		rows, dim := t.Shape[0], t.Shape[1]
		vs := make([]vector.Vector, rows)
		for r := 0; r < rows; r++ {
			vs[r] = vector.Vector(t.Values[r*dim : (r+1)*dim])
		}
		m, err := vector.Mean(vs...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadShape, err)
		}
		v = m
	default:
		return nil, fmt.Errorf("%w: %d dimensions", ErrBadShape, len(t.Shape))
	}
	if err := v.Validate(0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadShape, err)
	}
	return v, nil
}

// IsProviderError reports whether err carries a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
