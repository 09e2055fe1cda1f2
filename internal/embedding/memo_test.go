package embedding

import (
	"context"
	"testing"

	"github.com/hyperjump/osusume/internal/vector"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", vector.Vector{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", vector.Vector{4, 5})
	c.Get("a")                   // a is now most recent
	c.Set("c", vector.Vector{6}) // evicts b
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) Embed(_ context.Context, text string) (vector.Vector, error) {
	e.calls++
	return vector.Vector{float32(len(text)), 1}, nil
}

func TestMemo(t *testing.T) {
	inner := &countingEmbedder{}
	m := NewMemo(inner, 8)
	ctx := context.Background()

	first, _ := m.Embed(ctx, "tea")
	first[0] = 99
	second, _ := m.Embed(ctx, "tea")
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
	if second[0] != 3 {
		t.Errorf("memo returned a shared slice: %v", second)
	}
	if _, err := m.Embed(ctx, "coffee"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls)
	}
}
