package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sample = `[
  {"id": 1, "name": "Matcha Latte", "desc": "Creamy green tea", "category": "drink", "tags": ["tea"], "price": 450, "pair": [3]},
  {"id": 2, "name": "Espresso", "desc": "Strong coffee", "category": "drink"},
  {"id": 3, "name": "Dorayaki", "desc": "Red bean pancake", "category": "sweet", "vec": [0.1, 0.2]}
]`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "items.json")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	items, err := Load(writeFile(t, sample))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].ID != 1 || items[2].ID != 3 {
		t.Error("items out of file order")
	}
	if items[0].Price == nil || *items[0].Price != 450 {
		t.Errorf("price = %v", items[0].Price)
	}
	if items[1].Price != nil {
		t.Error("missing price should stay nil")
	}
	if len(items[2].Vec) != 2 {
		t.Errorf("inline vec = %v", items[2].Vec)
	}
	if len(items[0].Pair) != 1 || items[0].Pair[0] != 3 {
		t.Errorf("pair = %v", items[0].Pair)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrCatalogMissing) {
		t.Errorf("expected ErrCatalogMissing, got %v", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{oops"},
		{"object", `{"id": 1}`},
		{"duplicate ids", `[{"id": 1, "name": "a", "desc": ""}, {"id": 1, "name": "b", "desc": ""}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); !errors.Is(err, ErrCatalogInvalid) {
				t.Errorf("expected ErrCatalogInvalid, got %v", err)
			}
		})
	}
}

func TestRaw(t *testing.T) {
	raw, err := Raw(writeFile(t, "\n"+sample+"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != '[' {
		t.Errorf("raw should start with '[', got %q", raw[0])
	}
	if _, err := Raw(writeFile(t, `{"a": 1}`)); !errors.Is(err, ErrCatalogInvalid) {
		t.Errorf("expected ErrCatalogInvalid for object, got %v", err)
	}
}
