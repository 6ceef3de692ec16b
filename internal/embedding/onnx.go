//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/kotae/internal/ragerr"
	"github.com/hyperjump/kotae/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// onnxBatchRows caps how many texts go through the model in one Run.
const onnxBatchRows = 32

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// ONNXEmbedder runs a sentence-embedding model with ONNX Runtime. The model must
// take int64 input_ids, attention_mask and token_type_ids of shape [batch, tokens]
// and produce a pooled float32 "output" of shape [batch, dimensions].
// Requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	tokenizer  Tokenizer
	dimensions int
	maxTokens  int
}

// NewONNXEmbedder loads the model at modelPath.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens int) (*ONNXEmbedder, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("onnx embedder: model_path is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("onnx embedder: dimensions must be positive")
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	ortInitOnce.Do(func() { ortInitErr = ort.InitializeEnvironment() })
	if ortInitErr != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", ortInitErr)
	}
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return &ONNXEmbedder{
		session:    session,
		tokenizer:  &SimpleTokenizer{},
		dimensions: dimensions,
		maxTokens:  maxTokens,
	}, nil
}

// Embed embeds a single text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch runs the model over texts in padded batches of up to onnxBatchRows
// rows and returns L2-normalized vectors in input order.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += onnxBatchRows {
		if err := ctx.Err(); err != nil {
			return nil, ragerr.Wrap(ragerr.KindEmbedding, "embed", err)
		}
		end := start + onnxBatchRows
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.run(PackBatch(e.tokenizer, texts[start:end], e.maxTokens))
		if err != nil {
			return nil, ragerr.Wrap(ragerr.KindEmbedding, "embed", err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *ONNXEmbedder) run(b *Batch) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("onnx session is closed")
	}

	shape := ort.NewShape(int64(b.Rows), int64(b.Width))
	var inputs []ort.ArbitraryTensor
	defer func() {
		for _, t := range inputs {
			_ = t.Destroy()
		}
	}()
	for _, data := range [][]int64{b.InputIDs, b.AttentionMask, b.TokenTypeIDs} {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("create input tensor: %w", err)
		}
		inputs = append(inputs, t)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(b.Rows), int64(e.dimensions)))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := e.session.Run(inputs, []ort.ArbitraryTensor{output}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := output.GetData()
	vecs := make([][]float32, b.Rows)
	for row := range vecs {
		v := make([]float32, e.dimensions)
		copy(v, data[row*e.dimensions:(row+1)*e.dimensions])
		utils.NormalizeL2(v)
		vecs[row] = v
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session. Later calls fail with KindEmbedding.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
