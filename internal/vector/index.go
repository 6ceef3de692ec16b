// Package vector provides an immutable in-memory cosine similarity index over chunks.
package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/ragerr"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Metric is the similarity measure every Index uses.
const Metric = "cosine"

// Entry pairs a chunk with its embedding.
type Entry struct {
	Chunk  *models.Chunk
	Vector []float32
}

// Result is a single search hit. Score is the cosine similarity in [-1, 1].
type Result struct {
	Chunk *models.Chunk
	Score float64
}

// Index is a brute-force cosine index. It is immutable once built and safe for
// concurrent searches.
type Index struct {
	dimensions int
	chunks     []*models.Chunk
	vectors    [][]float32
}

// Build creates an index from entries. Vectors are copied and L2-normalized.
// It fails with ragerr.KindEmptyIndex when entries is empty and with
// ragerr.KindEmbedding when vectors differ in dimension.
func Build(entries []Entry) (*Index, error) {
	if len(entries) == 0 {
		return nil, ragerr.New(ragerr.KindEmptyIndex, "build index", "no chunks to index")
	}
	dims := len(entries[0].Vector)
	if dims == 0 {
		return nil, ragerr.New(ragerr.KindEmbedding, "build index", "embedding vectors are empty")
	}
	idx := &Index{
		dimensions: dims,
		chunks:     make([]*models.Chunk, len(entries)),
		vectors:    make([][]float32, len(entries)),
	}
	for i, e := range entries {
		if e.Chunk == nil {
			return nil, ragerr.New(ragerr.KindEmptyIndex, "build index", "entry %d has no chunk", i)
		}
		if len(e.Vector) != dims {
			return nil, ragerr.New(ragerr.KindEmbedding, "build index",
				"vector dimension mismatch at entry %d: got %d, expected %d", i, len(e.Vector), dims)
		}
		idx.chunks[i] = e.Chunk
		idx.vectors[i] = utils.NormalizedCopy(e.Vector)
	}
	return idx, nil
}

// Search returns up to k chunks most similar to query, by decreasing score.
// Equal scores keep insertion order. k is clamped to Size; k <= 0 returns no results.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if x == nil || len(x.chunks) == 0 {
		return nil, ragerr.New(ragerr.KindEmptyIndex, "search", "index has not been built")
	}
	if len(query) != x.dimensions {
		return nil, ragerr.New(ragerr.KindEmbedding, "search",
			"query dimension mismatch: got %d, expected %d", len(query), x.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	q := utils.NormalizedCopy(query)
	results := make([]Result, len(x.chunks))
	for i, vec := range x.vectors {
		results[i] = Result{Chunk: x.chunks[i], Score: InnerProduct(q, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Size returns the number of indexed chunks. A nil index has size 0.
func (x *Index) Size() int {
	if x == nil {
		return 0
	}
	return len(x.chunks)
}

// Dimensions returns the vector dimension.
func (x *Index) Dimensions() int {
	if x == nil {
		return 0
	}
	return x.dimensions
}

// Chunks returns the indexed chunks in insertion order. The slice is a copy.
func (x *Index) Chunks() []*models.Chunk {
	if x == nil {
		return nil
	}
	out := make([]*models.Chunk, len(x.chunks))
	copy(out, x.chunks)
	return out
}
