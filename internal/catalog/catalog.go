// Package catalog loads the authoritative item list from disk.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/hyperjump/osusume/internal/models"
)

// ErrCatalogMissing is returned when the catalog file does not exist.
var ErrCatalogMissing = errors.New("catalog not found")

// ErrCatalogInvalid is returned when the catalog file is not a JSON array of items.
var ErrCatalogInvalid = errors.New("catalog invalid")

// Load reads the catalog at path. Items keep file order and ids must be unique.
func Load(path string) ([]models.Item, error) {
	data, err := read(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a catalog document.
func Parse(data []byte) ([]models.Item, error) {
	var items []models.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogInvalid, err)
	}
	seen := make(map[int]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %d", ErrCatalogInvalid, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return items, nil
}

// Raw returns the catalog file contents unchanged, after checking it holds a JSON array.
func Raw(path string) (json.RawMessage, error) {
	data, err := read(path)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) || len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrCatalogInvalid)
	}
	return json.RawMessage(trimmed), nil
}

func read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogMissing, path)
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return data, nil
}
