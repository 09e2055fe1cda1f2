package ranking

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/vector"
)

// Ranker scores a working set against a history profile.
type Ranker struct {
	logger *zap.Logger
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) RankerOption {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRanker creates a Ranker.
func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank returns up to o.Top candidates ordered by descending score. Items in
// history are never returned. Equal scores keep working-set order.
func (r *Ranker) Rank(set []models.VectoredItem, history []int, o Options) ([]*models.ScoredItem, error) {
	breakdowns, err := r.Explain(set, history, o)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]*models.VectoredItem, len(set))
	for i := range set {
		byID[set[i].ID] = &set[i]
	}
	out := make([]*models.ScoredItem, len(breakdowns))
	for i, bd := range breakdowns {
		it := byID[bd.ID]
		out[i] = &models.ScoredItem{
			ID:       it.ID,
			Name:     it.Name,
			Score:    bd.Final,
			Category: it.Category,
			Price:    it.Price,
		}
	}
	return out, nil
}

// Explain is Rank with the per-candidate score breakdown.
func (r *Ranker) Explain(set []models.VectoredItem, history []int, o Options) ([]*ScoreBreakdown, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	dim := 0
	for i := range set {
		if dim == 0 {
			dim = set[i].Vector.Dim()
		}
		if err := set[i].Vector.Validate(dim); err != nil {
			return nil, fmt.Errorf("item %d: %w", set[i].ID, err)
		}
	}

	inHistory := make(map[int]struct{}, len(history))
	for _, id := range history {
		inHistory[id] = struct{}{}
	}

	var histVecs []vector.Vector
	categories := make(map[string]struct{})
	pairs := make(map[int]struct{})
	for i := range set {
		it := &set[i]
		if _, ok := inHistory[it.ID]; !ok {
			continue
		}
		histVecs = append(histVecs, it.Vector)
		if it.Category != "" {
			categories[it.Category] = struct{}{}
		}
		for _, p := range it.Pair {
			pairs[p] = struct{}{}
		}
	}
	if len(histVecs) == 0 {
		return nil, ErrEmptyHistory
	}
	profile, err := vector.Mean(histVecs...)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile: %w", err)
	}

	boosts := BoostChain(o)
	scored := make([]*ScoreBreakdown, 0, len(set)-len(histVecs))
	for i := range set {
		it := &set[i]
		if _, ok := inHistory[it.ID]; ok {
			continue
		}
		base, err := vector.Cosine(profile, it.Vector)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", it.ID, err)
		}
		ctx := &ScoringContext{
			Candidate:         it,
			Profile:           profile,
			HistoryCategories: categories,
			PairTargets:       pairs,
		}
		scored = append(scored, ApplyBoosts(ctx, base, boosts))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Final > scored[j].Final
	})
	if len(scored) > o.Top {
		scored = scored[:o.Top]
	}
	r.logger.Debug("ranked",
		zap.Int("history", len(histVecs)),
		zap.Int("candidates", len(set)-len(histVecs)),
		zap.Int("returned", len(scored)))
	return scored, nil
}
