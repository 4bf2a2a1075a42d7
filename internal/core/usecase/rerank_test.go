package usecase

import (
	"testing"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

func rerankCandidate(id string, rank int, similarity float64, city string, year int) domain.Candidate {
	return domain.Candidate{
		Chunk:      fundingChunk(id, "Company "+id, city, "", "fintech", "Seed", year, 1_000_000),
		Similarity: similarity,
		Score:      similarity,
		Rank:       rank,
	}
}

func TestRerankKeepsRetrievalOrderOnTies(t *testing.T) {
	reranker := NewReranker(DefaultRerankWeights(), 8)
	in := []domain.Candidate{
		rerankCandidate("c", 3, 0.5, "Pune", 2020),
		rerankCandidate("a", 1, 0.5, "Pune", 2020),
		rerankCandidate("b", 2, 0.5, "Pune", 2020),
	}

	first := reranker.Rerank(in, domain.QueryPlan{})
	second := reranker.Rerank(in, domain.QueryPlan{})
	for i, want := range []string{"a", "b", "c"} {
		if first[i].Chunk.ID != want || second[i].Chunk.ID != want {
			t.Fatalf("position %d: expected %s, got %s and %s", i, want, first[i].Chunk.ID, second[i].Chunk.ID)
		}
	}
	if in[0].Chunk.ID != "c" {
		t.Fatalf("expected input order to be left untouched")
	}
}

func TestRerankWeighsFilterMatches(t *testing.T) {
	reranker := NewReranker(DefaultRerankWeights(), 8)
	plan := domain.QueryPlan{Filter: domain.Filter{City: "Pune"}}
	out := reranker.Rerank([]domain.Candidate{
		rerankCandidate("other-city", 1, 0.7, "Mumbai", 2020),
		rerankCandidate("same-city", 2, 0.6, "Pune", 2020),
	}, plan)

	if out[0].Chunk.ID != "same-city" {
		t.Fatalf("expected filter match first, got %s", out[0].Chunk.ID)
	}
	if want := 0.6*0.6 + 0.3; !approxEqual(out[0].Score, want) {
		t.Fatalf("expected score %.3f, got %.3f", want, out[0].Score)
	}
}

func TestRerankPrefersRecentDealsOnEqualSimilarity(t *testing.T) {
	reranker := NewReranker(DefaultRerankWeights(), 8)
	out := reranker.Rerank([]domain.Candidate{
		rerankCandidate("old", 1, 0.5, "Pune", 2016),
		rerankCandidate("new", 2, 0.5, "Pune", 2020),
	}, domain.QueryPlan{})
	if out[0].Chunk.ID != "new" {
		t.Fatalf("expected recent deal first, got %s", out[0].Chunk.ID)
	}
}

func TestRerankTrimsAfterSorting(t *testing.T) {
	reranker := NewReranker(DefaultRerankWeights(), 3)
	var in []domain.Candidate
	for i := 1; i <= 10; i++ {
		in = append(in, rerankCandidate(string(rune('a'+i-1)), i, 0.3, "Pune", 2020))
	}
	in[9].Similarity = 0.95

	out := reranker.Rerank(in, domain.QueryPlan{})
	if len(out) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(out))
	}
	if out[0].Chunk.ID != "j" {
		t.Fatalf("expected the best late candidate to survive trimming, got %s", out[0].Chunk.ID)
	}
}

func approxEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
