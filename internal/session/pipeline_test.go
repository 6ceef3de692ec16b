package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generate"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/ragerr"
	"github.com/hyperjump/kotae/internal/search"
)

type fakeFetcher struct {
	mu   sync.Mutex
	docs map[string]string
	errs map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, locator string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[locator]; ok {
		return nil, err
	}
	content, ok := f.docs[locator]
	if !ok {
		return nil, ragerr.New(ragerr.KindFetch, "fetch", "GET %s: unexpected status 404 Not Found", locator)
	}
	return &models.Document{URL: locator, Title: "Title of " + locator, ContentType: "html", Content: content}, nil
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []*models.Ingestion
}

func (r *fakeRecorder) RecordIngestion(ctx context.Context, rec *models.Ingestion, chunks []*models.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.recs = append(r.recs, &cp)
	return nil
}

func newTestPipeline(t *testing.T, f Fetcher, opts ...PipelineOption) *Pipeline {
	t.Helper()
	chunker, err := indexer.NewChunker(200, 40)
	if err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewMockEmbedder(128)
	policy := generate.NewPolicyStore(generate.Policy{SystemPrompt: "{context}", MaxSentences: 2, ContextBudget: 2000})
	return NewPipeline(f,
		indexer.NewIndexer(chunker, emb),
		search.NewRetriever(emb, 3),
		generate.NewMockGenerator(policy),
		opts...)
}

const goDoc = "Go is an open source programming language. It was designed at Google. " +
	"Go has garbage collection and structural typing. Goroutines make concurrency cheap."

const rustDoc = "Rust is a systems language focused on safety. The borrow checker prevents data races. " +
	"Cargo is the Rust package manager."

func TestQuery_beforeIngestIsNotReady(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{})
	m := NewManager(nil)
	res, err := p.Query(context.Background(), m.Default(), "anything?", 0)
	if !errors.Is(err, ragerr.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	if res != nil {
		t.Error("no answer should be returned")
	}
}

func TestQuery_emptyQuestion(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{})
	_, err := p.Query(context.Background(), NewManager(nil).Default(), "   ", 0)
	if !errors.Is(err, ragerr.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestIngestThenQuery(t *testing.T) {
	rec := &fakeRecorder{}
	p := newTestPipeline(t, &fakeFetcher{docs: map[string]string{"https://go.dev": goDoc}}, WithRecorder(rec))
	sess := NewManager(nil).Default()
	ctx := context.Background()

	res, err := p.Ingest(ctx, sess, "https://go.dev")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Chunks == 0 || res.Title != "Title of https://go.dev" || res.IngestionID == "" {
		t.Errorf("unexpected result %+v", res)
	}
	if !sess.Ready() {
		t.Fatal("session should be ready")
	}

	q, err := p.Query(ctx, sess, "Who designed Go?", 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if q.Answer.Text == "" || len(q.Answer.Context) == 0 {
		t.Errorf("empty answer: %+v", q.Answer)
	}
	if len(q.Sources) < len(q.Answer.Context) {
		t.Errorf("sources %d < context %d", len(q.Sources), len(q.Answer.Context))
	}

	if len(rec.recs) != 1 || rec.recs[0].Status != models.IngestionSucceeded || rec.recs[0].Chunks != res.Chunks {
		t.Errorf("recorded %+v", rec.recs)
	}
}

func TestIngest_failureKeepsPreviousIndex(t *testing.T) {
	rec := &fakeRecorder{}
	f := &fakeFetcher{
		docs: map[string]string{"https://go.dev": goDoc, "https://empty.example": ""},
		errs: map[string]error{"https://down.example": ragerr.New(ragerr.KindFetch, "fetch", "connection refused")},
	}
	p := newTestPipeline(t, f, WithRecorder(rec))
	sess := NewManager(nil).Default()
	ctx := context.Background()

	if _, err := p.Ingest(ctx, sess, "https://go.dev"); err != nil {
		t.Fatal(err)
	}
	before := sess.Snapshot()

	if _, err := p.Ingest(ctx, sess, "https://down.example"); !errors.Is(err, ragerr.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if _, err := p.Ingest(ctx, sess, "https://empty.example"); !errors.Is(err, ragerr.ErrEmptyIndex) {
		t.Fatalf("expected empty index error, got %v", err)
	}
	if sess.Snapshot() != before {
		t.Fatal("failed ingestion must not replace the active snapshot")
	}
	if _, err := p.Query(ctx, sess, "What is Go?", 0); err != nil {
		t.Fatalf("session should still answer: %v", err)
	}

	if len(rec.recs) != 3 {
		t.Fatalf("recorded %d attempts, want 3", len(rec.recs))
	}
	if rec.recs[1].Status != models.IngestionFailed || !strings.Contains(rec.recs[1].Error, "connection refused") {
		t.Errorf("failure record = %+v", rec.recs[1])
	}
}

func TestIngest_replacesIndex(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{"https://go.dev": goDoc, "https://rust-lang.org": rustDoc}}
	p := newTestPipeline(t, f)
	sess := NewManager(nil).Default()
	ctx := context.Background()

	if _, err := p.Ingest(ctx, sess, "https://go.dev"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Ingest(ctx, sess, "https://rust-lang.org"); err != nil {
		t.Fatal(err)
	}
	q, err := p.Query(ctx, sess, "What is the borrow checker?", 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, ch := range q.Answer.Context {
		if ch.Source != "https://rust-lang.org" {
			t.Errorf("stale chunk from %s after replacement", ch.Source)
		}
	}
}

func TestQuery_concurrentWithIngest(t *testing.T) {
	docs := map[string]string{}
	for i := 0; i < 4; i++ {
		docs[fmt.Sprintf("https://doc%d.example", i)] = strings.Repeat(fmt.Sprintf("Document %d talks about topic %d. ", i, i), 20)
	}
	p := newTestPipeline(t, &fakeFetcher{docs: docs})
	sess := NewManager(nil).Default()
	ctx := context.Background()
	if _, err := p.Ingest(ctx, sess, "https://doc0.example"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				q, err := p.Query(ctx, sess, "what topic?", 0)
				if err != nil {
					errs <- err
					return
				}
				src := q.Answer.Context[0].Source
				for _, ch := range q.Answer.Context {
					if ch.Source != src {
						errs <- fmt.Errorf("answer mixed %s and %s", src, ch.Source)
						return
					}
				}
			}
		}()
	}
	for i := 1; i < 4; i++ {
		if _, err := p.Ingest(ctx, sess, fmt.Sprintf("https://doc%d.example", i)); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestIngest_invalidLocatorIsClientError(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{"nope": ragerr.New(ragerr.KindInvalidInput, "fetch", "unsupported url scheme")}}
	p := newTestPipeline(t, f)
	_, err := p.Ingest(context.Background(), NewManager(nil).Default(), "nope")
	if !ragerr.IsClientError(err) {
		t.Errorf("expected client error, got %v", err)
	}
}
