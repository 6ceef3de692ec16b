// Package search retrieves the chunks most relevant to a question from a vector index.
package search

import (
	"context"
	"time"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/ragerr"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// Retriever embeds questions and searches an index. It holds no per-index state,
// so one Retriever serves every session.
type Retriever struct {
	embedder     embedding.Embedder
	defaultTopK  int
	embedTimeout time.Duration
	logger       *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithEmbedTimeout bounds the query embedding call.
func WithEmbedTimeout(d time.Duration) Option {
	return func(r *Retriever) { r.embedTimeout = d }
}

// NewRetriever creates a retriever. defaultTopK is used when a caller passes k == 0.
func NewRetriever(embedder embedding.Embedder, defaultTopK int, opts ...Option) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = 4
	}
	r := &Retriever{embedder: embedder, defaultTopK: defaultTopK}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.OrNop(r.logger)
	return r
}

// DefaultTopK returns the k used when callers pass zero.
func (r *Retriever) DefaultTopK() int {
	return r.defaultTopK
}

// Retrieve returns up to k chunks in decreasing relevance. k == 0 selects the default.
func (r *Retriever) Retrieve(ctx context.Context, idx *vector.Index, query string, k int) ([]*models.Chunk, error) {
	results, err := r.RetrieveScored(ctx, idx, query, k)
	if err != nil {
		return nil, err
	}
	chunks := make([]*models.Chunk, len(results))
	for i, res := range results {
		chunks[i] = res.Chunk
	}
	return chunks, nil
}

// RetrieveScored is Retrieve keeping the similarity scores.
func (r *Retriever) RetrieveScored(ctx context.Context, idx *vector.Index, query string, k int) ([]vector.Result, error) {
	if idx == nil {
		return nil, ragerr.New(ragerr.KindEmptyIndex, "retrieve", "index has not been built")
	}
	if k == 0 {
		k = r.defaultTopK
	}
	embedCtx := ctx
	if r.embedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, r.embedTimeout)
		defer cancel()
	}
	start := time.Now()
	q, err := r.embedder.Embed(embedCtx, query)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindEmbedding, "embed query", err)
	}
	results, err := idx.Search(ctx, q, k)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("chunks retrieved",
		zap.Int("k", k),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(start)))
	return results, nil
}

// Sources converts scored results into API source references with short excerpts.
func Sources(results []vector.Result, excerptLen int) []*models.Source {
	out := make([]*models.Source, len(results))
	for i, res := range results {
		out[i] = &models.Source{
			URL:     res.Chunk.Source,
			Index:   res.Chunk.Index,
			Offset:  res.Chunk.Offset,
			End:     res.Chunk.End,
			Score:   res.Score,
			Excerpt: Highlight(res.Chunk.Content, excerptLen),
		}
	}
	return out
}
