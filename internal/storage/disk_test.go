package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSizes(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "f1.txt")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	f2 := filepath.Join(dir, "f2.txt")
	if err := os.WriteFile(f2, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{f1}, 5},
		{"two files", []string{f1, f2}, 8},
		{"missing skipped", []string{f1, filepath.Join(dir, "nonexistent")}, 5},
		{"directory ignored", []string{dir, f2}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fileSizes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}

func TestCacheFootprint_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := CacheFootprint(NewJSONStore(path))
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("got %d, want 2", got)
	}

	missing, err := CacheFootprint(NewJSONStore(filepath.Join(t.TempDir(), "absent.json")))
	if err != nil || missing != 0 {
		t.Errorf("missing cache footprint = %d, %v", missing, err)
	}
}
