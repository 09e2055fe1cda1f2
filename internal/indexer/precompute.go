package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/embedding"
	"github.com/hyperjump/osusume/internal/metrics"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/storage"
)

// Runner computes vectors for a whole catalog and persists them.
type Runner interface {
	Run(ctx context.Context, items []models.Item) ([]models.VectoredItem, error)
}

// Precomputer embeds every catalog item from its augmented description and
// replaces the cache with the result. A failure on any item writes nothing.
type Precomputer struct {
	embedder   embedding.Embedder
	store      storage.CacheStore
	dimensions int
	delay      time.Duration
	pairPhrase string
	logger     *zap.Logger
	sleep      func(time.Duration)
}

// NewPrecomputer creates a precomputer.
func NewPrecomputer(embedder embedding.Embedder, store storage.CacheStore, opts ...Option) *Precomputer {
	o := buildOptions(opts)
	return &Precomputer{
		embedder:   embedder,
		store:      store,
		dimensions: o.dimensions,
		delay:      o.delay,
		pairPhrase: o.pairPhrase,
		logger:     o.logger,
		sleep:      time.Sleep,
	}
}

// Run embeds items in catalog order, pausing after each, then saves the full set.
func (p *Precomputer) Run(ctx context.Context, items []models.Item) (out []models.VectoredItem, err error) {
	runID := uuid.New().String()
	log := p.logger.With(zap.String("run_id", runID))
	start := time.Now()
	defer func() {
		metrics.RecordPrecompute(time.Since(start), len(out), err)
	}()
	log.Info("precompute started", zap.Int("items", len(items)))

	names := make(map[int]string, len(items))
	for _, it := range items {
		names[it.ID] = it.Name
	}

	dim := p.dimensions
	vectored := make([]models.VectoredItem, 0, len(items))
	for i, it := range items {
		aug := AugmentDescription(it, names, p.pairPhrase)
		v, err := p.embedder.Embed(ctx, aug)
		if err != nil {
			log.Error("precompute aborted", zap.Int("item_id", it.ID), zap.Error(err))
			return nil, fmt.Errorf("failed to embed item %d: %w", it.ID, err)
		}
		if dim == 0 {
			dim = v.Dim()
		}
		if err := v.Validate(dim); err != nil {
			log.Error("precompute aborted", zap.Int("item_id", it.ID), zap.Error(err))
			return nil, fmt.Errorf("item %d: %w", it.ID, err)
		}
		vectored = append(vectored, models.VectoredItem{
			Item:    it,
			Vector:  v,
			AugDesc: aug,
			Source:  models.Precomputed,
		})
		log.Debug("item embedded", zap.Int("item_id", it.ID), zap.Int("done", i+1), zap.Int("total", len(items)))
		if p.delay > 0 {
			p.sleep(p.delay)
		}
	}

	if err := p.store.Save(ctx, vectored); err != nil {
		log.Error("failed to persist cache", zap.Error(err))
		return nil, fmt.Errorf("failed to save cache: %w", err)
	}
	metrics.VectorResolutions.WithLabelValues(models.Precomputed.String()).Add(float64(len(vectored)))
	log.Info("precompute finished",
		zap.Int("items", len(vectored)),
		zap.Int("dimensions", dim),
		zap.Duration("elapsed", time.Since(start)))
	return vectored, nil
}

// AugmentDescription appends the names of resolvable pair items to the description:
// "{desc}. {phrase}: a, b." Ids missing from names are dropped; with none left the
// plain description is returned.
func AugmentDescription(item models.Item, names map[int]string, phrase string) string {
	var paired []string
	for _, id := range item.Pair {
		if name, ok := names[id]; ok {
			paired = append(paired, name)
		}
	}
	if len(paired) == 0 {
		return item.Desc
	}
	return fmt.Sprintf("%s. %s: %s.", item.Desc, phrase, strings.Join(paired, ", "))
}
