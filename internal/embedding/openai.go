package embedding

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hyperjump/kotae/internal/llmhttp"
	"github.com/hyperjump/kotae/internal/ragerr"
	"go.uber.org/zap"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client     *llmhttp.Client
	model      string
	dimensions int
	batchSize  int
}

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
}

type embeddingsRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewOpenAIEmbedder creates an embedder. Dimensions is the expected vector size;
// responses of any other size are rejected.
func NewOpenAIEmbedder(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai embedder: model is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("openai embedder: dimensions must be positive")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	opts := []llmhttp.Option{llmhttp.WithMaxRetries(cfg.MaxRetries), llmhttp.WithLogger(logger)}
	if cfg.APIKey != "" {
		opts = append(opts, llmhttp.WithAPIKey(cfg.APIKey))
	}
	return &OpenAIEmbedder{
		client:     llmhttp.New(cfg.BaseURL, cfg.Timeout, opts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  cfg.BatchSize,
	}, nil
}

// Embed embeds a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch sends texts in requests of at most batchSize inputs.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingsRequest{Model: e.model, Input: texts}
	if e.model != "text-embedding-ada-002" {
		req.Dimensions = e.dimensions
	}
	var resp embeddingsResponse
	if err := e.client.PostJSON(ctx, "embeddings", req, &resp); err != nil {
		return nil, ragerr.Wrap(ragerr.KindEmbedding, "embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, ragerr.New(ragerr.KindEmbedding, "embed", "provider returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}
	sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	vecs := make([][]float32, len(texts))
	for i, d := range resp.Data {
		if len(d.Embedding) != e.dimensions {
			return nil, ragerr.New(ragerr.KindEmbedding, "embed", "provider returned dimension %d, expected %d", len(d.Embedding), e.dimensions)
		}
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
