package usecase

import (
	"sort"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

type RerankWeights struct {
	Similarity float64
	Filter     float64
	Recency    float64
}

func DefaultRerankWeights() RerankWeights {
	return RerankWeights{Similarity: 0.60, Filter: 0.30, Recency: 0.10}
}

type Reranker struct {
	weights RerankWeights
	topN    int
}

func NewReranker(weights RerankWeights, topN int) *Reranker {
	if weights == (RerankWeights{}) {
		weights = DefaultRerankWeights()
	}
	return &Reranker{weights: weights, topN: topN}
}

// Rerank scores every candidate, orders by score with ties kept in retrieval
// order, and trims to topN afterwards. The input slice is not modified.
func (r *Reranker) Rerank(candidates []domain.Candidate, plan domain.QueryPlan) []domain.Candidate {
	if len(candidates) == 0 {
		return candidates
	}
	out := make([]domain.Candidate, len(candidates))
	copy(out, candidates)

	minYear, maxYear := 0, 0
	for _, c := range out {
		year := c.Chunk.Metadata.Year
		if year <= 0 {
			continue
		}
		if minYear == 0 || year < minYear {
			minYear = year
		}
		if year > maxYear {
			maxYear = year
		}
	}

	for i := range out {
		meta := out[i].Chunk.Metadata

		filterScore := 0.0
		if matched, total := plan.Filter.MatchCount(meta); total > 0 {
			filterScore = float64(matched) / float64(total)
		}
		recency := 0.0
		if maxYear > minYear && meta.Year > 0 {
			recency = float64(meta.Year-minYear) / float64(maxYear-minYear)
		}

		out[i].Score = r.weights.Similarity*out[i].Similarity +
			r.weights.Filter*filterScore +
			r.weights.Recency*recency
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Rank < out[j].Rank
	})

	if r.topN > 0 && len(out) > r.topN {
		out = out[:r.topN]
	}
	return out
}
