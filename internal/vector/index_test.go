package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/ragerr"
)

func entries(vecs ...[]float32) []Entry {
	out := make([]Entry, len(vecs))
	for i, v := range vecs {
		out[i] = Entry{Chunk: &models.Chunk{ID: fmt.Sprintf("c%d", i), Index: i}, Vector: v}
	}
	return out
}

func TestBuildAndSearch(t *testing.T) {
	idx, err := Build(entries(
		[]float32{1, 0, 0},
		[]float32{0.9, 0.1, 0},
		[]float32{0, 1, 0},
	))
	if err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 || idx.Dimensions() != 3 {
		t.Errorf("Size=%d Dimensions=%d", idx.Size(), idx.Dimensions())
	}

	results, err := idx.Search(context.Background(), []float32{2, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "c0" || results[1].Chunk.ID != "c1" {
		t.Errorf("order: %s, %s", results[0].Chunk.ID, results[1].Chunk.ID)
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("identical direction should score 1, got %f", results[0].Score)
	}
}

func TestSearch_clampsK(t *testing.T) {
	vecs := make([][]float32, 5)
	for i := range vecs {
		vecs[i] = []float32{float32(i + 1), 1}
	}
	idx, err := Build(entries(vecs...))
	if err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(context.Background(), []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 {
		t.Fatalf("k=10 on 5 chunks should return 5, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
	for _, k := range []int{0, -1} {
		got, err := idx.Search(context.Background(), []float32{1, 0}, k)
		if err != nil || len(got) != 0 {
			t.Errorf("k=%d: got %d results, err %v", k, len(got), err)
		}
	}
}

func TestSearch_tiesKeepInsertionOrder(t *testing.T) {
	idx, _ := Build(entries(
		[]float32{0, 1},
		[]float32{1, 0},
		[]float32{2, 0},
		[]float32{3, 0},
	))
	results, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if results[i].Chunk.ID != want {
			t.Errorf("result %d = %s, want %s", i, results[i].Chunk.ID, want)
		}
	}
}

func TestBuild_errors(t *testing.T) {
	if _, err := Build(nil); !errors.Is(err, ragerr.ErrEmptyIndex) {
		t.Errorf("empty build: got %v", err)
	}
	if _, err := Build(entries([]float32{1, 0}, []float32{1, 0, 0})); !errors.Is(err, ragerr.ErrEmbedding) {
		t.Errorf("dimension mismatch: got %v", err)
	}
}

func TestSearch_errors(t *testing.T) {
	var nilIdx *Index
	if _, err := nilIdx.Search(context.Background(), []float32{1}, 1); !errors.Is(err, ragerr.ErrEmptyIndex) {
		t.Errorf("nil index: got %v", err)
	}
	idx, _ := Build(entries([]float32{1, 0}))
	if _, err := idx.Search(context.Background(), []float32{1, 0, 0}, 1); !errors.Is(err, ragerr.ErrEmbedding) {
		t.Errorf("query mismatch: got %v", err)
	}
}

func TestSearch_contextDone(t *testing.T) {
	idx, err := Build(entries([]float32{1, 0}, []float32{0, 1}))
	if err != nil {
		t.Fatal(err)
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()

	tests := []struct {
		name     string
		ctx      context.Context
		wantErr  error
		wantKind ragerr.Kind
	}{
		{"cancelled", cancelled, context.Canceled, ragerr.KindUnknown},
		{"deadline", expired, context.DeadlineExceeded, ragerr.KindTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := idx.Search(tt.ctx, []float32{1, 0}, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if got := ragerr.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %q, want %q", got, tt.wantKind)
			}
			if errors.Is(err, ragerr.ErrEmbedding) {
				t.Errorf("context error reported as embedding failure: %v", err)
			}
		})
	}
}

func TestBuild_copiesVectors(t *testing.T) {
	v := []float32{3, 4}
	idx, _ := Build(entries(v))
	v[0] = -100
	results, _ := idx.Search(context.Background(), []float32{3, 4}, 1)
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("index should not alias caller vectors, score %f", results[0].Score)
	}
	chunks := idx.Chunks()
	chunks[0] = nil
	if idx.Chunks()[0] == nil {
		t.Error("Chunks should return a copy")
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal = %f", got)
	}
	if got := CosineSimilarity([]float32{2, 0}, []float32{5, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel = %f", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector = %f", got)
	}
}
