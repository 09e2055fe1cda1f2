package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 10 * time.Minute
	}
	if cfg.Storage.CatalogPath == "" {
		cfg.Storage.CatalogPath = "./data/items.json"
	}
	if cfg.Storage.CachePath == "" {
		cfg.Storage.CachePath = "./data/items_with_vecs.json"
	}
	if cfg.Storage.CacheBackend == "" {
		cfg.Storage.CacheBackend = "json"
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = "huggingface"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hf-inference"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 60 * time.Second
	}
	if cfg.Embedding.Retries == 0 {
		cfg.Embedding.Retries = 3
	}
	if cfg.Embedding.Backoff == 0 {
		cfg.Embedding.Backoff = 2 * time.Second
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 128
	}
	if cfg.Precompute.Delay == nil {
		d := 120 * time.Millisecond
		cfg.Precompute.Delay = &d
	}
	if cfg.Precompute.PairPhrase == "" {
		cfg.Precompute.PairPhrase = "Commonly paired with"
	}
	if cfg.Recommend.DefaultTop == 0 {
		cfg.Recommend.DefaultTop = 3
	}
	if cfg.Recommend.MaxTop == 0 {
		cfg.Recommend.MaxTop = 100
	}
	if cfg.Recommend.CategoryBoost == nil {
		cb := 1.0
		cfg.Recommend.CategoryBoost = &cb
	}
	if cfg.Recommend.PairBoost == nil {
		pb := 0.15
		cfg.Recommend.PairBoost = &pb
	}
}
