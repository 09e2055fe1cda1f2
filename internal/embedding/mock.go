package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/osusume/internal/vector"
)

// MockProvider is a deterministic provider for tests and offline use. The same
// text always yields the same output.
type MockProvider struct {
	dimensions int
	tokenLevel bool
}

// NewMockProvider returns a provider of the given dimensions. With tokenLevel it
// emits one row per word, like a feature-extraction model without pooling.
func NewMockProvider(dimensions int, tokenLevel bool) *MockProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockProvider{dimensions: dimensions, tokenLevel: tokenLevel}
}

// Extract returns a hash-derived embedding of text.
func (p *MockProvider) Extract(_ context.Context, text string) (Tensor, error) {
	if !p.tokenLevel {
		return Tensor{Shape: []int{p.dimensions}, Values: hashVector(text, p.dimensions)}, nil
	}
	words := SplitWords(text)
	if len(words) == 0 {
		words = []string{""}
	}
	values := make([]float32, 0, len(words)*p.dimensions)
	for _, w := range words {
		values = append(values, hashVector(w, p.dimensions)...)
	}
	return Tensor{Shape: []int{len(words), p.dimensions}, Values: values}, nil
}

// Close is a no-op.
func (p *MockProvider) Close() error { return nil }

func hashVector(text string, dimensions int) []float32 {
	h := HashString(text)
	emb := make(vector.Vector, dimensions)
	for i := 0; i < dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	vector.NormalizeL2(emb)
	return emb
}
