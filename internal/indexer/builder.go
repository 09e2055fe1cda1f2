package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/embedding"
	"github.com/hyperjump/osusume/internal/metrics"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/storage"
	"github.com/hyperjump/osusume/internal/vector"
)

// Resolution is how one catalog item gets its vector in a working set.
type Resolution struct {
	Kind    models.Resolution
	Vector  vector.Vector
	AugDesc string
}

// Resolve picks the vector source for item: a valid cache entry first, then a
// valid inline vector, otherwise NeedsComputation. A vector whose length differs
// from dim is not valid; dim 0 accepts any length.
func Resolve(item models.Item, cache *storage.Cache, dim int) Resolution {
	if e, ok := cache.Lookup(item.ID); ok && e.Vec.Validate(dim) == nil {
		aug := e.AugDesc
		if aug == "" {
			aug = item.Desc
		}
		return Resolution{Kind: models.CachedHit, Vector: e.Vec, AugDesc: aug}
	}
	if item.Vec.Validate(dim) == nil {
		return Resolution{Kind: models.InlineProvided, Vector: item.Vec, AugDesc: item.Desc}
	}
	return Resolution{Kind: models.NeedsComputation, AugDesc: item.Desc}
}

// Builder assembles the working set of vectored items for a request.
type Builder struct {
	embedder   embedding.Embedder
	store      storage.CacheStore
	runner     Runner
	dimensions int
	logger     *zap.Logger
}

// NewBuilder creates a builder. runner is used when the cache is bypassed or absent.
func NewBuilder(embedder embedding.Embedder, store storage.CacheStore, runner Runner, opts ...Option) *Builder {
	o := buildOptions(opts)
	return &Builder{
		embedder:   embedder,
		store:      store,
		runner:     runner,
		dimensions: o.dimensions,
		logger:     o.logger,
	}
}

// Build returns one VectoredItem per catalog item, in catalog order. Vectors
// computed here for cache misses are not persisted.
func (b *Builder) Build(ctx context.Context, items []models.Item, useCache bool) ([]models.VectoredItem, error) {
	if !useCache {
		b.logger.Debug("cache bypassed, running precompute")
		return b.runner.Run(ctx, items)
	}
	cache, ok := b.store.Load(ctx)
	if !ok {
		b.logger.Info("vector cache absent, running precompute", zap.String("path", b.store.Path()))
		return b.runner.Run(ctx, items)
	}

	dim := b.dimensions
	if dim == 0 {
		dim = cache.Dimensions()
	}

	counts := make(map[models.Resolution]int, 3)
	out := make([]models.VectoredItem, len(items))
	for i, it := range items {
		r := Resolve(it, cache, dim)
		if r.Kind == models.NeedsComputation {
			v, err := b.embedder.Embed(ctx, it.Desc)
			if err != nil {
				return nil, fmt.Errorf("failed to embed item %d: %w", it.ID, err)
			}
			r.Vector = v
			b.logger.Debug("vector computed on demand", zap.Int("item_id", it.ID))
		}
		counts[r.Kind]++
		out[i] = models.VectoredItem{Item: it, Vector: r.Vector, AugDesc: r.AugDesc, Source: r.Kind}
	}

	fields := make([]zap.Field, 0, len(counts)+1)
	fields = append(fields, zap.Int("dimensions", dim))
	for kind, n := range counts {
		metrics.VectorResolutions.WithLabelValues(kind.String()).Add(float64(n))
		fields = append(fields, zap.Int(kind.String(), n))
	}
	b.logger.Debug("working set built", fields...)
	return out, nil
}
