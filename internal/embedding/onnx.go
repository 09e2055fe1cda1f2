//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	defaultMaxTokens  = 128
	defaultOutputName = "last_hidden_state"
	defaultDimensions = 384
)

// ONNXProvider runs a local sentence-transformer model with ONNX Runtime. It
// returns the hidden states of attended tokens, which the Adapter mean-pools.
// It requires CGO and the onnxruntime shared library.
type ONNXProvider struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXProvider loads cfg.ModelPath. InitializeEnvironment is called if not already done.
// With cfg.VocabPath set the WordPiece tokenizer is used, otherwise the hash tokenizer.
func NewONNXProvider(cfg Config) (*ONNXProvider, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx backend requires a model path")
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	outputName := cfg.OutputName
	if outputName == "" {
		outputName = defaultOutputName
	}

	var tokenizer Tokenizer = &SimpleTokenizer{}
	if cfg.VocabPath != "" {
		wp, err := LoadWordPieceTokenizer(cfg.VocabPath)
		if err != nil {
			return nil, err
		}
		tokenizer = wp
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", maxTokens)
	inputShape := ort.NewShape(1, int64(maxTokens))

	inputIDsTensor, err := ort.NewTensor(inputShape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(inputShape, attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(inputShape, tokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(maxTokens), int64(dimensions)))
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{outputName},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXProvider{
		session:             session,
		dimensions:          dimensions,
		maxTokens:           maxTokens,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Extract runs the model and returns one row per attended token.
func (p *ONNXProvider) Extract(ctx context.Context, text string) (Tensor, error) {
	if err := ctx.Err(); err != nil {
		return Tensor{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := p.tokenizer.Tokenize(text, p.maxTokens)
	copy(p.inputIDsTensor.GetData(), inputIDs)
	copy(p.attentionMaskTensor.GetData(), attentionMask)
	copy(p.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := p.session.Run(); err != nil {
		return Tensor{}, fmt.Errorf("inference failed: %w", err)
	}

	hidden := p.outputTensor.GetData()
	values := make([]float32, 0, p.maxTokens*p.dimensions)
	rows := 0
	for i, m := range attentionMask {
		if m == 0 {
			continue
		}
		values = append(values, hidden[i*p.dimensions:(i+1)*p.dimensions]...)
		rows++
	}
	return Tensor{Shape: []int{rows, p.dimensions}, Values: values}, nil
}

// Close destroys the session and tensors.
func (p *ONNXProvider) Close() error {
	var err error
	if p.session != nil {
		err = p.session.Destroy()
		p.session = nil
	}
	if p.inputIDsTensor != nil {
		_ = p.inputIDsTensor.Destroy()
		p.inputIDsTensor = nil
	}
	if p.attentionMaskTensor != nil {
		_ = p.attentionMaskTensor.Destroy()
		p.attentionMaskTensor = nil
	}
	if p.tokenTypeIDsTensor != nil {
		_ = p.tokenTypeIDsTensor.Destroy()
		p.tokenTypeIDsTensor = nil
	}
	if p.outputTensor != nil {
		_ = p.outputTensor.Destroy()
		p.outputTensor = nil
	}
	return err
}
