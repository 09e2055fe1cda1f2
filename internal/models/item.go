// Package models defines the catalog, cache, and recommendation data structures.
package models

import "github.com/hyperjump/osusume/internal/vector"

// Item is an authoritative catalog record. The engine never mutates it.
type Item struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Desc     string   `json:"desc"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Price    *int     `json:"price,omitempty"`
	Pair     []int    `json:"pair,omitempty"`
	// Vec is an optional vector supplied inline by the catalog. In the cache
	// file the same field carries the computed embedding.
	Vec vector.Vector `json:"vec,omitempty"`
}

// CacheEntry is one persisted cache record: the catalog item, its embedding
// (in Item.Vec), and the augmented text that produced it.
type CacheEntry struct {
	Item
	AugDesc string `json:"aug_desc"`
}

// Resolution tells how a working-set vector was obtained.
type Resolution int

const (
	// NeedsComputation means no usable vector existed; it was computed on demand.
	NeedsComputation Resolution = iota
	// CachedHit means the vector came from the durable cache.
	CachedHit
	// InlineProvided means the catalog record carried the vector itself.
	InlineProvided
	// Precomputed means the vector was produced by a precompute run.
	Precomputed
)

// String returns a short name for logs and metrics labels.
func (r Resolution) String() string {
	switch r {
	case NeedsComputation:
		return "computed"
	case CachedHit:
		return "cached"
	case InlineProvided:
		return "inline"
	case Precomputed:
		return "precomputed"
	default:
		return "unknown"
	}
}

// VectoredItem is an Item joined with its resolved embedding. It is the unit the
// ranker consumes and lives only for a single request or precompute run.
type VectoredItem struct {
	Item
	Vector  vector.Vector `json:"-"`
	AugDesc string        `json:"-"`
	Source  Resolution    `json:"-"`
}

// Entry returns the persisted form of v.
func (v *VectoredItem) Entry() CacheEntry {
	item := v.Item
	item.Vec = v.Vector
	return CacheEntry{Item: item, AugDesc: v.AugDesc}
}
