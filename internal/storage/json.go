package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/models"
)

// JSONStore keeps the cache as an indented JSON array of items with "vec" and "aug_desc".
type JSONStore struct {
	path   string
	logger *zap.Logger
}

// NewJSONStore returns a store backed by the file at path. The file need not exist.
func NewJSONStore(path string, opts ...Option) *JSONStore {
	o := buildOptions(opts)
	return &JSONStore{path: path, logger: o.logger}
}

// Path returns the cache file path.
func (s *JSONStore) Path() string { return s.path }

// Load reads and decodes the cache file.
func (s *JSONStore) Load(_ context.Context) (*Cache, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("vector cache unreadable, ignoring", zap.String("path", s.path), zap.Error(err))
		}
		return nil, false
	}
	var entries []models.CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("vector cache ignored",
			zap.String("path", s.path),
			zap.Error(fmt.Errorf("%w: %v", ErrCacheCorrupt, err)))
		return nil, false
	}
	if len(entries) == 0 {
		return nil, false
	}
	return NewCache(entries), true
}

// Save atomically replaces the cache file with items.
func (s *JSONStore) Save(_ context.Context, items []models.VectoredItem) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entriesOf(items)); err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	return writeFileAtomic(s.path, buf.Bytes())
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }

// writeFileAtomic writes data to a temp file next to path and renames it over path,
// so readers see either the old or the new file in full.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close cache: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod cache: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace cache: %w", err)
	}
	return nil
}
