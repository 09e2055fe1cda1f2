// Package ranking scores catalog items against a user profile built from history.
package ranking

import (
	"errors"
	"fmt"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/vector"
)

// ScoreCap is the ceiling for any boosted score. It keeps a boosted candidate
// strictly below an unboosted perfect match.
const ScoreCap = 0.9999

var (
	// ErrEmptyHistory is returned when no history id resolves to a working-set item.
	ErrEmptyHistory = errors.New("history empty or invalid ids")
	// ErrInvalidOptions is returned for a non-positive top or a negative boost.
	ErrInvalidOptions = errors.New("invalid ranking options")
)

// Options are the per-request ranking parameters.
type Options struct {
	Top           int
	CategoryBoost float64
	PairBoost     float64
}

// DefaultOptions returns top 3, no category effect, and a 0.15 pair bonus.
func DefaultOptions() Options {
	return Options{Top: 3, CategoryBoost: 1.0, PairBoost: 0.15}
}

// Validate checks o.
func (o Options) Validate() error {
	if o.Top < 1 {
		return fmt.Errorf("%w: top must be positive, got %d", ErrInvalidOptions, o.Top)
	}
	if o.CategoryBoost < 0 {
		return fmt.Errorf("%w: category boost %v", ErrInvalidOptions, o.CategoryBoost)
	}
	if o.PairBoost < 0 {
		return fmt.Errorf("%w: pair boost %v", ErrInvalidOptions, o.PairBoost)
	}
	return nil
}

// ScoringContext holds what boosts need to know about one candidate.
type ScoringContext struct {
	// Candidate is the item being scored.
	Candidate *models.VectoredItem
	// Profile is the mean of the resolved history vectors.
	Profile vector.Vector
	// HistoryCategories are the non-empty categories of resolved history items.
	HistoryCategories map[string]struct{}
	// PairTargets are ids listed in any resolved history item's pair list.
	PairTargets map[int]struct{}
}

// Boost adjusts a score. Apply reports whether the boost fired.
type Boost interface {
	Apply(ctx *ScoringContext, score float64) (float64, bool)
	Name() string
}

// ScoreBreakdown explains how one candidate's score was produced.
type ScoreBreakdown struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Base  float64 `json:"base"`
	Final float64 `json:"final"`
	// Boosts lists the boosts that fired, in the order applied.
	Boosts []AppliedBoost `json:"boosts,omitempty"`
	// Clamped is true when the score was lowered to ScoreCap.
	Clamped bool `json:"clamped,omitempty"`
}

// AppliedBoost records one fired boost and the score after it.
type AppliedBoost struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}
