//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errONNXUnavailable = errors.New("onnx backend requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXProvider stub type when built without CGO (see onnx.go for real implementation).
type ONNXProvider struct{}

// NewONNXProvider returns an error when built without CGO.
func NewONNXProvider(_ Config) (*ONNXProvider, error) {
	return nil, errONNXUnavailable
}

// Extract always fails.
func (p *ONNXProvider) Extract(_ context.Context, _ string) (Tensor, error) {
	return Tensor{}, errONNXUnavailable
}

// Close is a no-op.
func (p *ONNXProvider) Close() error { return nil }
