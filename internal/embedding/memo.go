package embedding

import (
	"container/list"
	"context"
	"sync"

	"github.com/hyperjump/osusume/internal/metrics"
	"github.com/hyperjump/osusume/internal/vector"
)

// EmbeddingCache is an LRU cache for embeddings keyed by text.
type EmbeddingCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value vector.Vector
}

// NewEmbeddingCache creates a new cache with the given capacity.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for key if present.
func (c *EmbeddingCache) Get(key string) (vector.Vector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the oldest entry if at capacity.
func (c *EmbeddingCache) Set(key string, value vector.Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Memo remembers recent embeddings in process memory. It never touches the
// durable vector cache.
type Memo struct {
	next  Embedder
	cache *EmbeddingCache
}

// NewMemo puts an LRU of the given capacity in front of next.
func NewMemo(next Embedder, capacity int) *Memo {
	return &Memo{next: next, cache: NewEmbeddingCache(capacity)}
}

// Embed returns a remembered vector for text or asks next.
func (m *Memo) Embed(ctx context.Context, text string) (vector.Vector, error) {
	if v, ok := m.cache.Get(text); ok {
		metrics.MemoHits.Inc()
		return v.Clone(), nil
	}
	metrics.MemoMisses.Inc()
	v, err := m.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	m.cache.Set(text, v.Clone())
	return v, nil
}
