package models

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks a recommend request rejected before any work is done.
var ErrInvalidRequest = errors.New("invalid request")

// RecommendRequest is the input for a recommendation. Optional fields left nil
// take the server defaults in Normalize.
type RecommendRequest struct {
	History       []int    `json:"history"`
	Top           *int     `json:"top,omitempty"`
	UseCache      *bool    `json:"use_cache,omitempty"`
	CategoryBoost *float64 `json:"category_boost,omitempty"`
	PairBoost     *float64 `json:"pair_boost,omitempty"`
}

// RecommendDefaults holds the values applied to unset request fields.
type RecommendDefaults struct {
	Top           int
	MaxTop        int
	CategoryBoost float64
	PairBoost     float64
}

// Normalize fills unset fields from d and validates the result.
// An empty history is not rejected here; the ranker reports it as ErrEmptyHistory.
func (r *RecommendRequest) Normalize(d RecommendDefaults) error {
	if r.Top == nil {
		top := d.Top
		r.Top = &top
	}
	if r.UseCache == nil {
		use := true
		r.UseCache = &use
	}
	if r.CategoryBoost == nil {
		cb := d.CategoryBoost
		r.CategoryBoost = &cb
	}
	if r.PairBoost == nil {
		pb := d.PairBoost
		r.PairBoost = &pb
	}
	if *r.Top < 1 {
		return fmt.Errorf("%w: top must be positive, got %d", ErrInvalidRequest, *r.Top)
	}
	if d.MaxTop > 0 && *r.Top > d.MaxTop {
		*r.Top = d.MaxTop
	}
	if *r.CategoryBoost < 0 {
		return fmt.Errorf("%w: category_boost must be >= 0", ErrInvalidRequest)
	}
	if *r.PairBoost < 0 {
		return fmt.Errorf("%w: pair_boost must be >= 0", ErrInvalidRequest)
	}
	return nil
}
