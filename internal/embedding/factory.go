package embedding

import (
	"fmt"
	"strings"
)

// NewProvider creates the provider named by cfg.Backend.
func NewProvider(cfg Config, opts ...Option) (Provider, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "huggingface", "hf":
		p, err := NewHuggingFaceProvider(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "onnx":
		p, err := NewONNXProvider(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "mock":
		return NewMockProvider(cfg.Dimensions, false), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend: %s", cfg.Backend)
	}
}
