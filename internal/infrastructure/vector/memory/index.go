// Package memory is a brute-force in-process vector index for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

type entry struct {
	chunk  domain.Chunk
	vector []float32
	norm   float64
}

type Index struct {
	mu      sync.RWMutex
	entries []entry
	byID    map[string]int
}

func New() *Index {
	return &Index{byID: make(map[string]int)}
}

func (i *Index) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch")
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for n, chunk := range chunks {
		e := entry{chunk: chunk, vector: vectors[n], norm: norm(vectors[n])}
		if idx, ok := i.byID[chunk.ID]; ok {
			i.entries[idx] = e
			continue
		}
		i.byID[chunk.ID] = len(i.entries)
		i.entries = append(i.entries, e)
	}
	return nil
}

// Search scores only entries that pass filter, by cosine similarity.
func (i *Index) Search(ctx context.Context, queryVector []float32, limit int, filter domain.Filter) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(queryVector) == 0 || limit <= 0 {
		return nil, nil
	}
	qNorm := norm(queryVector)
	if qNorm == 0 {
		return nil, nil
	}

	type hit struct {
		entry entry
		score float64
		order int
	}

	i.mu.RLock()
	hits := make([]hit, 0, len(i.entries))
	for n, e := range i.entries {
		if !filter.Matches(e.chunk.Metadata) || e.norm == 0 || len(e.vector) != len(queryVector) {
			continue
		}
		hits = append(hits, hit{entry: e, score: dot(queryVector, e.vector) / (qNorm * e.norm), order: n})
	}
	i.mu.RUnlock()

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].order < hits[b].order
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]domain.Candidate, 0, len(hits))
	for rank, h := range hits {
		out = append(out, domain.Candidate{
			Chunk:      h.entry.chunk,
			Similarity: h.score,
			Score:      h.score,
			Rank:       rank + 1,
		})
	}
	return out, nil
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func dot(a, b []float32) float64 {
	var sum float64
	for n := range a {
		sum += float64(a[n]) * float64(b[n])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
