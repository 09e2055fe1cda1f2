// Package config provides configuration loading and structs for the osusume server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/osusume/internal/embedding"
	"github.com/hyperjump/osusume/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Precompute PrecomputeConfig `yaml:"precompute"`
	Recommend  RecommendConfig  `yaml:"recommend"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig holds the catalog and vector cache locations.
type StorageConfig struct {
	CatalogPath  string `yaml:"catalog_path"`
	CachePath    string `yaml:"cache_path"`
	CacheBackend string `yaml:"cache_backend"` // json | sqlite
}

// EmbeddingConfig selects the embedding backend and its retry policy.
type EmbeddingConfig struct {
	Backend    string        `yaml:"backend"` // huggingface | onnx | mock
	Endpoint   string        `yaml:"endpoint"`
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	Backoff    time.Duration `yaml:"backoff"`
	Dimensions int           `yaml:"dimensions"`
	ModelPath  string        `yaml:"model_path"`
	VocabPath  string        `yaml:"vocab_path"`
	MaxTokens  int           `yaml:"max_tokens"`
	OutputName string        `yaml:"output_name"`
	MemoSize   int           `yaml:"memo_size"`
}

// PrecomputeConfig holds precompute pacing and text augmentation settings.
type PrecomputeConfig struct {
	Delay      *time.Duration `yaml:"delay"`
	PairPhrase string         `yaml:"pair_phrase"`
}

// RecommendConfig holds request defaults.
type RecommendConfig struct {
	DefaultTop    int      `yaml:"default_top"`
	MaxTop        int      `yaml:"max_top"`
	CategoryBoost *float64 `yaml:"category_boost"`
	PairBoost     *float64 `yaml:"pair_boost"`
}

// Load reads and parses the config file at path, applies defaults and
// environment overrides, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := finish(&cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration with paths resolved against dir
// and environment overrides applied.
func Default(dir string) (*Config, error) {
	var cfg Config
	if err := finish(&cfg, dir); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config, configDir string) error {
	ApplyDefaults(cfg)
	cfg.Storage.CatalogPath = expandPath(cfg.Storage.CatalogPath, configDir)
	cfg.Storage.CachePath = expandPath(cfg.Storage.CachePath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	if cfg.Embedding.VocabPath != "" {
		cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	}
	return ApplyEnv(cfg, os.LookupEnv)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

// EmbeddingSettings converts the embedding section for embedding.New.
func (c *Config) EmbeddingSettings() embedding.Config {
	e := c.Embedding
	return embedding.Config{
		Backend:    e.Backend,
		Endpoint:   e.Endpoint,
		Provider:   e.Provider,
		Model:      e.Model,
		Token:      e.Token,
		Timeout:    e.Timeout,
		Retries:    e.Retries,
		Backoff:    e.Backoff,
		Dimensions: e.Dimensions,
		ModelPath:  e.ModelPath,
		VocabPath:  e.VocabPath,
		MaxTokens:  e.MaxTokens,
		OutputName: e.OutputName,
		MemoSize:   e.MemoSize,
	}
}

// RecommendDefaults returns the values applied to unset request fields.
func (c *Config) RecommendDefaults() models.RecommendDefaults {
	return models.RecommendDefaults{
		Top:           c.Recommend.DefaultTop,
		MaxTop:        c.Recommend.MaxTop,
		CategoryBoost: *c.Recommend.CategoryBoost,
		PairBoost:     *c.Recommend.PairBoost,
	}
}
