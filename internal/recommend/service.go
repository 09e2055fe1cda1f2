// Package recommend composes catalog loading, vector resolution, and ranking
// into the list, recommend, and precompute operations.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/embedding"
	"github.com/hyperjump/osusume/internal/indexer"
	"github.com/hyperjump/osusume/internal/metrics"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/ranking"
	"github.com/hyperjump/osusume/internal/storage"
)

// ErrInvalidRequest marks a request rejected before any work is done.
var ErrInvalidRequest = models.ErrInvalidRequest

// Service is safe for concurrent use. Precompute runs, whether explicit or
// triggered by a recommend request, never overlap.
type Service struct {
	catalogPath string
	store       storage.CacheStore
	builder     *indexer.Builder
	precomputer *indexer.Precomputer
	ranker      *ranking.Ranker
	defaults    models.RecommendDefaults
	backend     string
	model       string
	logger      *zap.Logger

	precomputeMu   sync.Mutex
	statusMu       sync.RWMutex
	lastPrecompute time.Time
}

// Option configures a Service.
type Option func(*settings)

type settings struct {
	logger   *zap.Logger
	defaults models.RecommendDefaults
	indexer  []indexer.Option
	backend  string
	model    string
}

// WithLogger sets the logger passed down to every component.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaults sets the values applied to unset request fields.
func WithDefaults(d models.RecommendDefaults) Option {
	return func(s *settings) { s.defaults = d }
}

// WithIndexerOptions passes options to the builder and precomputer.
func WithIndexerOptions(opts ...indexer.Option) Option {
	return func(s *settings) { s.indexer = append(s.indexer, opts...) }
}

// WithEmbeddingInfo records the backend and model reported by Status.
func WithEmbeddingInfo(backend, model string) Option {
	return func(s *settings) {
		s.backend = backend
		s.model = model
	}
}

// NewService wires the engine around the catalog at catalogPath.
func NewService(catalogPath string, embedder embedding.Embedder, store storage.CacheStore, opts ...Option) *Service {
	st := settings{
		logger: zap.NewNop(),
		defaults: models.RecommendDefaults{
			Top:           3,
			CategoryBoost: 1.0,
			PairBoost:     0.15,
		},
	}
	for _, opt := range opts {
		opt(&st)
	}
	idxOpts := append([]indexer.Option{indexer.WithLogger(st.logger)}, st.indexer...)

	s := &Service{
		catalogPath: catalogPath,
		store:       store,
		ranker:      ranking.NewRanker(ranking.WithLogger(st.logger)),
		defaults:    st.defaults,
		backend:     st.backend,
		model:       st.model,
		logger:      st.logger,
	}
	s.precomputer = indexer.NewPrecomputer(embedder, store, idxOpts...)
	s.builder = indexer.NewBuilder(embedder, store, serialRunner{s}, idxOpts...)
	return s
}

// ListItems returns the catalog file contents.
func (s *Service) ListItems(_ context.Context) (json.RawMessage, error) {
	return catalog.Raw(s.catalogPath)
}

// Recommend ranks catalog items against req.History.
func (s *Service) Recommend(ctx context.Context, req *models.RecommendRequest) (*models.RecommendResponse, error) {
	set, opts, err := s.prepare(ctx, req)
	if err != nil {
		s.record(err)
		return nil, err
	}
	results, err := s.ranker.Rank(set, req.History, opts)
	s.record(err)
	if err != nil {
		return nil, err
	}
	return &models.RecommendResponse{Results: results}, nil
}

// Explain is Recommend with the score breakdown of each returned candidate.
func (s *Service) Explain(ctx context.Context, req *models.RecommendRequest) ([]*ranking.ScoreBreakdown, error) {
	set, opts, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.ranker.Explain(set, req.History, opts)
}

func (s *Service) prepare(ctx context.Context, req *models.RecommendRequest) ([]models.VectoredItem, ranking.Options, error) {
	if err := req.Normalize(s.defaults); err != nil {
		return nil, ranking.Options{}, err
	}
	if len(req.History) == 0 {
		return nil, ranking.Options{}, ranking.ErrEmptyHistory
	}
	items, err := catalog.Load(s.catalogPath)
	if err != nil {
		return nil, ranking.Options{}, err
	}
	set, err := s.builder.Build(ctx, items, *req.UseCache)
	if err != nil {
		return nil, ranking.Options{}, err
	}
	return set, ranking.Options{
		Top:           *req.Top,
		CategoryBoost: *req.CategoryBoost,
		PairBoost:     *req.PairBoost,
	}, nil
}

func (s *Service) record(err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ranking.ErrEmptyHistory):
		result = "empty_history"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ranking.ErrInvalidOptions):
		result = "invalid"
	default:
		result = "error"
	}
	metrics.Recommendations.WithLabelValues(result).Inc()
}

// Precompute embeds the whole catalog and replaces the cache.
func (s *Service) Precompute(ctx context.Context) (*models.PrecomputeResponse, error) {
	items, err := catalog.Load(s.catalogPath)
	if err != nil {
		return nil, err
	}
	out, err := s.runPrecompute(ctx, items)
	if err != nil {
		return nil, err
	}
	return &models.PrecomputeResponse{OK: true, Count: len(out)}, nil
}

// runPrecompute serializes precompute runs and detaches them from caller
// cancellation: once started a run finishes or fails on its own.
func (s *Service) runPrecompute(ctx context.Context, items []models.Item) ([]models.VectoredItem, error) {
	s.precomputeMu.Lock()
	defer s.precomputeMu.Unlock()

	out, err := s.precomputer.Run(context.WithoutCancel(ctx), items)
	if err != nil {
		return nil, err
	}
	s.statusMu.Lock()
	s.lastPrecompute = time.Now()
	s.statusMu.Unlock()
	return out, nil
}

type serialRunner struct {
	s *Service
}

func (r serialRunner) Run(ctx context.Context, items []models.Item) ([]models.VectoredItem, error) {
	return r.s.runPrecompute(ctx, items)
}

// Status describes the catalog and cache.
type Status struct {
	CatalogPath      string     `json:"catalog_path"`
	CatalogItems     int        `json:"catalog_items"`
	CacheBackend     string     `json:"cache_backend"`
	CachePath        string     `json:"cache_path"`
	CacheEntries     int        `json:"cache_entries"`
	CacheDimensions  int        `json:"cache_dimensions"`
	CacheBytes       int64      `json:"cache_bytes"`
	EmbeddingBackend string     `json:"embedding_backend,omitempty"`
	EmbeddingModel   string     `json:"embedding_model,omitempty"`
	LastPrecompute   *time.Time `json:"last_precompute,omitempty"`
}

// Status reports catalog and cache state. A missing catalog is an error.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	items, err := catalog.Load(s.catalogPath)
	if err != nil {
		return nil, err
	}
	st := &Status{
		CatalogPath:      s.catalogPath,
		CatalogItems:     len(items),
		CachePath:        s.store.Path(),
		EmbeddingModel:   s.model,
		EmbeddingBackend: s.backend,
	}
	switch s.store.(type) {
	case *storage.SQLiteStore:
		st.CacheBackend = "sqlite"
	default:
		st.CacheBackend = "json"
	}
	if cache, ok := s.store.Load(ctx); ok {
		st.CacheEntries = cache.Len()
		st.CacheDimensions = cache.Dimensions()
	}
	if n, err := storage.CacheFootprint(s.store); err == nil {
		st.CacheBytes = n
	} else {
		s.logger.Warn("failed to measure cache size", zap.Error(err))
	}
	s.statusMu.RLock()
	if !s.lastPrecompute.IsZero() {
		t := s.lastPrecompute
		st.LastPrecompute = &t
	}
	s.statusMu.RUnlock()
	return st, nil
}
