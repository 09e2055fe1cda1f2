package e2e

import (
	"strings"
	"testing"
)

func TestBuildCorpus_Size(t *testing.T) {
	c := BuildCorpus()
	want := 0
	for _, f := range families {
		want += len(f.variants)
	}
	if c.TotalItems != want || len(c.Items) != want {
		t.Errorf("expected %d items, got %d", want, c.TotalItems)
	}
}

func TestBuildCorpus_UniqueIDs(t *testing.T) {
	seen := make(map[int]bool)
	for _, it := range BuildCorpus().Items {
		if seen[it.ID] {
			t.Errorf("duplicate id %d", it.ID)
		}
		seen[it.ID] = true
	}
}

func TestBuildCorpus_FamiliesShareSignature(t *testing.T) {
	c := BuildCorpus()
	for _, f := range families {
		ids := c.Family(f.category)
		if len(ids) != len(f.variants) {
			t.Errorf("%s: got %d members, want %d", f.category, len(ids), len(f.variants))
		}
		for _, it := range c.Items {
			if it.Category == f.category && !strings.HasPrefix(it.Desc, f.signature) {
				t.Errorf("item %d desc %q lacks signature %q", it.ID, it.Desc, f.signature)
			}
		}
	}
}

func TestBuildCorpus_SignaturesDisjoint(t *testing.T) {
	owner := make(map[string]string)
	for _, f := range families {
		for _, w := range strings.Fields(f.signature) {
			if other, ok := owner[w]; ok && other != f.category {
				t.Errorf("word %q shared by %s and %s", w, other, f.category)
			}
			owner[w] = f.category
		}
	}
}
