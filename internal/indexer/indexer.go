// Package indexer turns a fetched document into a searchable vector index:
// normalize, chunk, embed, build.
package indexer

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

// Indexer chunks and embeds documents into a fresh vector.Index.
type Indexer struct {
	chunker      *Chunker
	embedder     embedding.Embedder
	embedTimeout time.Duration
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithEmbedTimeout bounds the embedding stage. Zero means no extra deadline.
func WithEmbedTimeout(d time.Duration) IndexerOption {
	return func(idx *Indexer) { idx.embedTimeout = d }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(chunker *Chunker, embedder embedding.Embedder, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		chunker:  chunker,
		embedder: embedder,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx
}

// Built is the result of indexing one document.
type Built struct {
	Document *models.Document
	Chunks   []*models.Chunk
	Index    *vector.Index
}

// IndexDocument chunks doc, embeds every chunk in one batch and builds an index.
// A document with no text fails with ragerr.KindEmptyIndex; embedding failures
// keep their kind, and a missed deadline is ragerr.KindTimeout.
func (idx *Indexer) IndexDocument(ctx context.Context, doc *models.Document) (*Built, error) {
	chunks := idx.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return nil, ragerr.New(ragerr.KindEmptyIndex, "index", "document %s has no text content", doc.URL)
	}
	idx.logger.Debug("document chunked", zap.String("url", doc.URL), zap.Int("chunks", len(chunks)))

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	embedCtx := ctx
	if idx.embedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, idx.embedTimeout)
		defer cancel()
	}
	start := time.Now()
	vectors, err := idx.embedder.EmbedBatch(embedCtx, texts)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindEmbedding, "embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return nil, ragerr.New(ragerr.KindEmbedding, "embed chunks", "got %d embeddings for %d chunks", len(vectors), len(chunks))
	}
	idx.logger.Debug("chunks embedded", zap.Int("chunks", len(chunks)), zap.Duration("elapsed", time.Since(start)))

	entries := make([]vector.Entry, len(chunks))
	for i := range chunks {
		entries[i] = vector.Entry{Chunk: chunks[i], Vector: vectors[i]}
	}
	index, err := vector.Build(entries)
	if err != nil {
		return nil, err
	}
	return &Built{Document: doc, Chunks: chunks, Index: index}, nil
}
