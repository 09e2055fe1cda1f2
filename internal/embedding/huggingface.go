package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultEndpoint = "https://router.huggingface.co"
	defaultHFModel  = "sentence-transformers/all-MiniLM-L6-v2"
	defaultHFRoute  = "hf-inference"
	defaultTimeout  = 60 * time.Second
)

// HuggingFaceProvider calls the Hugging Face feature-extraction inference API.
type HuggingFaceProvider struct {
	client *http.Client
	url    string
	token  string
	logger *zap.Logger
}

// NewHuggingFaceProvider builds a provider from cfg. Endpoint, Provider, Model,
// and Timeout fall back to the public inference defaults.
func NewHuggingFaceProvider(cfg Config, opts ...Option) (*HuggingFaceProvider, error) {
	o := buildOptions(opts)
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultHFModel
	}
	route := cfg.Provider
	if route == "" {
		route = defaultHFRoute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if cfg.Token == "" {
		o.logger.Warn("HF_TOKEN is not set; inference requests will be anonymous")
	}
	return &HuggingFaceProvider{
		client: &http.Client{Timeout: timeout},
		url:    fmt.Sprintf("%s/%s/models/%s/pipeline/feature-extraction", endpoint, route, model),
		token:  cfg.Token,
		logger: o.logger,
	}, nil
}

// URL returns the inference URL requests are sent to.
func (p *HuggingFaceProvider) URL() string { return p.url }

// Extract posts text and decodes the returned nested number array.
func (p *HuggingFaceProvider) Extract(ctx context.Context, text string) (Tensor, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Tensor{}, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return Tensor{}, fmt.Errorf("inference returned %d: %s", resp.StatusCode, msg)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Tensor{}, fmt.Errorf("failed to decode inference response: %w", err)
	}
	t, err := tensorFromJSON(raw)
	if err != nil {
		return Tensor{}, err
	}
	// A single input may come back wrapped in a batch of one.
	if len(t.Shape) == 3 && t.Shape[0] == 1 {
		t.Shape = t.Shape[1:]
	}
	return t, nil
}

// Close releases idle connections.
func (p *HuggingFaceProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// tensorFromJSON flattens a rectangular nested array of numbers.
func tensorFromJSON(raw any) (Tensor, error) {
	var shape []int
	for cur := raw; ; {
		arr, ok := cur.([]any)
		if !ok {
			break
		}
		shape = append(shape, len(arr))
		if len(arr) == 0 {
			break
		}
		cur = arr[0]
	}
	if len(shape) == 0 {
		return Tensor{}, fmt.Errorf("%w: response is not an array", ErrBadShape)
	}

	var values []float32
	var walk func(v any, depth int) error
	walk = func(v any, depth int) error {
		if depth == len(shape) {
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("%w: non-numeric element %v", ErrBadShape, v)
			}
			values = append(values, float32(f))
			return nil
		}
		arr, ok := v.([]any)
		if !ok || len(arr) != shape[depth] {
			return fmt.Errorf("%w: ragged array at depth %d", ErrBadShape, depth)
		}
		for _, e := range arr {
			if err := walk(e, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(raw, 0); err != nil {
		return Tensor{}, err
	}
	return Tensor{Shape: shape, Values: values}, nil
}
