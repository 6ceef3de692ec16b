package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/generate"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/ragerr"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// Fetcher retrieves a document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (*models.Document, error)
}

// Recorder persists ingestion attempts.
type Recorder interface {
	RecordIngestion(ctx context.Context, rec *models.Ingestion, chunks []*models.Chunk) error
}

// recordTimeout bounds history writes, which outlive a cancelled request.
const recordTimeout = 5 * time.Second

// Pipeline runs ingestion (fetch, chunk, embed, build, publish) and question
// answering (retrieve, generate) against sessions.
type Pipeline struct {
	fetcher      Fetcher
	indexer      *indexer.Indexer
	retriever    *search.Retriever
	generator    generate.Generator
	recorder     Recorder
	fetchTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRecorder records every ingestion attempt.
func WithRecorder(r Recorder) PipelineOption {
	return func(p *Pipeline) { p.recorder = r }
}

// WithFetchTimeout bounds the fetch stage.
func WithFetchTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.fetchTimeout = d }
}

// WithLogger sets a logger for pipeline events.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline wires the pipeline stages.
func NewPipeline(f Fetcher, idx *indexer.Indexer, r *search.Retriever, g generate.Generator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetcher:   f,
		indexer:   idx,
		retriever: r,
		generator: g,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// IngestResult describes a successful ingestion.
type IngestResult struct {
	IngestionID string
	Source      string
	Title       string
	Characters  int
	Chunks      int
	Elapsed     time.Duration
}

// Ingest builds a new index from locator off to the side and, only on success,
// publishes it as sess's active snapshot. On failure the previous snapshot
// stays active and the originating tagged error is returned.
func (p *Pipeline) Ingest(ctx context.Context, sess *Session, locator string) (*IngestResult, error) {
	start := p.now()
	sess.touch(start)
	log := p.logger.With(zap.String("session_id", sess.ID()), zap.String("url", locator))

	rec := &models.Ingestion{ID: uuid.New().String(), SessionID: sess.ID(), URL: locator, CreatedAt: start.UTC()}
	built, err := p.build(ctx, locator)
	rec.DurationMS = p.now().Sub(start).Milliseconds()
	if err != nil {
		rec.Status = models.IngestionFailed
		rec.Error = err.Error()
		p.record(ctx, rec, nil)
		log.Warn("ingestion failed", zap.String("kind", string(ragerr.KindOf(err))), zap.Error(err))
		return nil, err
	}

	doc := built.Document
	rec.URL = doc.URL
	rec.Title = doc.Title
	rec.ContentType = doc.ContentType
	rec.Characters = len([]rune(doc.Content))
	rec.Chunks = len(built.Chunks)
	rec.Status = models.IngestionSucceeded
	p.record(ctx, rec, built.Chunks)

	sess.publish(&Snapshot{
		Index:       built.Index,
		Source:      doc.URL,
		Title:       doc.Title,
		Chunks:      len(built.Chunks),
		BuiltAt:     p.now().UTC(),
		IngestionID: rec.ID,
	})
	elapsed := p.now().Sub(start)
	log.Info("ingestion published",
		zap.String("title", doc.Title),
		zap.Int("chunks", len(built.Chunks)),
		zap.Duration("elapsed", elapsed))

	return &IngestResult{
		IngestionID: rec.ID,
		Source:      doc.URL,
		Title:       doc.Title,
		Characters:  rec.Characters,
		Chunks:      rec.Chunks,
		Elapsed:     elapsed,
	}, nil
}

func (p *Pipeline) build(ctx context.Context, locator string) (*indexer.Built, error) {
	fetchCtx := ctx
	if p.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}
	doc, err := p.fetcher.Fetch(fetchCtx, locator)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindFetch, "fetch", err)
	}
	return p.indexer.IndexDocument(ctx, doc)
}

func (p *Pipeline) record(ctx context.Context, rec *models.Ingestion, chunks []*models.Chunk) {
	if p.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := p.recorder.RecordIngestion(ctx, rec, chunks); err != nil {
		p.logger.Error("failed to record ingestion", zap.String("url", rec.URL), zap.Error(err))
	}
}

// QueryResult is an answer plus the scored chunks it was grounded on.
type QueryResult struct {
	Answer  *models.Answer
	Sources []vector.Result
	Elapsed time.Duration
}

// Query answers question against sess's current snapshot, retrieving k chunks
// (k == 0 selects the retriever default). A session with no successful
// ingestion fails with ragerr.KindNotReady.
func (p *Pipeline) Query(ctx context.Context, sess *Session, question string, k int) (*QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ragerr.New(ragerr.KindInvalidInput, "query", "query is required")
	}
	start := p.now()
	sess.touch(start)
	snap := sess.Snapshot()
	if snap == nil {
		return nil, ragerr.New(ragerr.KindNotReady, "query", "no document has been processed for session %s", sess.ID())
	}

	results, err := p.retriever.RetrieveScored(ctx, snap.Index, question, k)
	if err != nil {
		return nil, err
	}
	chunks := make([]*models.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	answer, err := p.generator.Generate(ctx, question, chunks)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindGeneration, "generate", err)
	}
	elapsed := p.now().Sub(start)
	p.logger.Debug("query answered",
		zap.String("session_id", sess.ID()),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", elapsed))
	return &QueryResult{Answer: answer, Sources: results, Elapsed: elapsed}, nil
}
