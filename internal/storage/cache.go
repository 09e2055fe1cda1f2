// Package storage persists computed item vectors so later requests skip the provider.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/vector"
)

// ErrCacheCorrupt wraps a cache decode failure. Stores log it and report the
// cache as absent; callers never see it from Load.
var ErrCacheCorrupt = errors.New("vector cache corrupt")

// CacheStore loads and replaces the vector cache.
type CacheStore interface {
	// Load returns the cache and true, or nil and false when it is missing,
	// unreadable, corrupt, or empty.
	Load(ctx context.Context) (*Cache, bool)
	// Save replaces the whole cache with items.
	Save(ctx context.Context, items []models.VectoredItem) error
	// Path returns the backing file.
	Path() string
	Close() error
}

// Cache is a loaded snapshot of the vector cache. Entries keep file order.
type Cache struct {
	entries []models.CacheEntry
	byID    map[int]int
	dim     int
}

// NewCache indexes entries. Later duplicates of an id win.
func NewCache(entries []models.CacheEntry) *Cache {
	c := &Cache{entries: entries, byID: make(map[int]int, len(entries))}
	vecs := make([]vector.Vector, len(entries))
	for i, e := range entries {
		c.byID[e.ID] = i
		vecs[i] = e.Vec
	}
	c.dim = vector.ConsensusDim(vecs)
	return c
}

// Lookup returns the entry for id.
func (c *Cache) Lookup(id int) (models.CacheEntry, bool) {
	if c == nil {
		return models.CacheEntry{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return models.CacheEntry{}, false
	}
	return c.entries[i], true
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Dimensions returns the most common vector length in the cache.
func (c *Cache) Dimensions() int {
	if c == nil {
		return 0
	}
	return c.dim
}

// Entries returns the entries in file order.
func (c *Cache) Entries() []models.CacheEntry {
	if c == nil {
		return nil
	}
	return c.entries
}

// Option configures a store.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for corrupt-cache warnings.
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

// NewCacheStore creates a store for the given backend ("json" or "sqlite").
func NewCacheStore(backend, path string, opts ...Option) (CacheStore, error) {
	switch strings.ToLower(backend) {
	case "", "json":
		return NewJSONStore(path, opts...), nil
	case "sqlite":
		return NewSQLiteStore(path, opts...)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", backend)
	}
}

func entriesOf(items []models.VectoredItem) []models.CacheEntry {
	out := make([]models.CacheEntry, len(items))
	for i := range items {
		out[i] = items[i].Entry()
	}
	return out
}
