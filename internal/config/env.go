package config

import (
	"fmt"
	"strconv"
	"time"
)

// ApplyEnv overrides cfg from environment variables read through lookup.
// Catalog and cache paths from the environment are taken as given.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("HF_TOKEN", &cfg.Embedding.Token)
	str("HF_MODEL", &cfg.Embedding.Model)
	str("HF_PROVIDER", &cfg.Embedding.Provider)
	str("HF_ENDPOINT", &cfg.Embedding.Endpoint)
	str("EMBED_BACKEND", &cfg.Embedding.Backend)
	str("OSUSUME_CATALOG", &cfg.Storage.CatalogPath)
	str("OSUSUME_CACHE", &cfg.Storage.CachePath)

	if v, ok := lookup("EMBED_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid EMBED_RETRIES %q", v)
		}
		cfg.Embedding.Retries = n
	}
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"HF_TIMEOUT", &cfg.Embedding.Timeout},
		{"EMBED_BACKOFF", &cfg.Embedding.Backoff},
		{"PRECOMPUTE_DELAY", cfg.Precompute.Delay},
	} {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		dur, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = dur
	}
	return nil
}

// parseSeconds accepts a Go duration ("2s", "120ms") or a bare number of seconds ("0.12").
func parseSeconds(v string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if f < 0 {
			return 0, fmt.Errorf("negative duration")
		}
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration")
	}
	return d, nil
}
