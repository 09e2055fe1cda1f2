package storage

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/vector"
)

func sampleItems() []models.VectoredItem {
	price := 450
	return []models.VectoredItem{
		{
			Item:    models.Item{ID: 1, Name: "抹茶ラテ", Desc: "Creamy green tea", Category: "drink", Price: &price, Pair: []int{2}},
			Vector:  vector.Vector{0.1, 0.2, float32(1.0 / 3.0)},
			AugDesc: "Creamy green tea. Commonly paired with: Dorayaki.",
		},
		{
			Item:    models.Item{ID: 2, Name: "Dorayaki", Desc: "Red bean pancake", Category: "sweet"},
			Vector:  vector.Vector{-0.5, 0.25, 1e-7},
			AugDesc: "Red bean pancake",
		},
	}
}

func TestJSONStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "items_with_vecs.json")
	store := NewJSONStore(path)
	ctx := context.Background()
	items := sampleItems()

	if err := store.Save(ctx, items); err != nil {
		t.Fatal(err)
	}
	cache, ok := store.Load(ctx)
	if !ok {
		t.Fatal("expected cache to load")
	}
	if cache.Len() != 2 || cache.Dimensions() != 3 {
		t.Fatalf("Len=%d Dimensions=%d", cache.Len(), cache.Dimensions())
	}
	for _, it := range items {
		e, ok := cache.Lookup(it.ID)
		if !ok {
			t.Fatalf("missing entry %d", it.ID)
		}
		if e.AugDesc != it.AugDesc || e.Name != it.Name {
			t.Errorf("entry %d = %+v", it.ID, e)
		}
		for i := range it.Vector {
			if math.Abs(float64(e.Vec[i]-it.Vector[i])) > 1e-6 {
				t.Errorf("entry %d component %d = %v, want %v", it.ID, i, e.Vec[i], it.Vector[i])
			}
		}
	}
	if e := cache.Entries(); e[0].ID != 1 || e[1].ID != 2 {
		t.Error("entries out of order")
	}
}

func TestJSONStore_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := NewJSONStore(path).Save(context.Background(), sampleItems()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, "抹茶ラテ") {
		t.Error("non-ASCII text should be written unescaped")
	}
	if !strings.Contains(s, "\n  {") {
		t.Error("expected 2-space indentation")
	}
	for _, key := range []string{`"vec"`, `"aug_desc"`, `"pair"`, `"price"`} {
		if !strings.Contains(s, key) {
			t.Errorf("missing key %s", key)
		}
	}
}

func TestJSONStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := NewJSONStore(filepath.Join(dir, "cache.json"))
	for i := 0; i < 3; i++ {
		if err := store.Save(context.Background(), sampleItems()); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the cache file, got %v", names)
	}
}

func TestJSONStore_Absent(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content *string
	}{
		{"missing", nil},
		{"corrupt", strPtr("[{\"id\": 1, \"vec\": [0.1,")},
		{"wrong type", strPtr(`{"id": 1}`)},
		{"empty array", strPtr("[]")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0644); err != nil {
					t.Fatal(err)
				}
			}
			cache, ok := NewJSONStore(path).Load(context.Background())
			if ok || cache != nil {
				t.Errorf("expected absent cache, got %v", cache)
			}
		})
	}
}

func TestJSONStore_SaveReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := NewJSONStore(path)
	ctx := context.Background()
	if err := store.Save(ctx, sampleItems()); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, sampleItems()[:1]); err != nil {
		t.Fatal(err)
	}
	cache, ok := store.Load(ctx)
	if !ok || cache.Len() != 1 {
		t.Fatalf("expected 1 entry after replace, got %d", cache.Len())
	}
	if _, ok := cache.Lookup(2); ok {
		t.Error("entry 2 should be gone after full replace")
	}
}

func TestNewCacheStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCacheStore("json", filepath.Join(dir, "c.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*JSONStore); !ok {
		t.Errorf("expected *JSONStore, got %T", s)
	}
	s, err = NewCacheStore("SQLite", filepath.Join(dir, "c.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", s)
	}
	if _, err := NewCacheStore("redis", "x"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestCache_NilSafe(t *testing.T) {
	var c *Cache
	if c.Len() != 0 || c.Dimensions() != 0 || c.Entries() != nil {
		t.Error("nil cache should be empty")
	}
	if _, ok := c.Lookup(1); ok {
		t.Error("nil cache lookup should miss")
	}
}

func strPtr(s string) *string { return &s }
