package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
	"github.com/kirillkom/funding-rag-assistant/internal/core/textnorm"
)

var errNoQueryVector = errors.New("query embedding unavailable")

type RetrieverConfig struct {
	SearchTimeout      time.Duration
	MinSimilarity      float64
	DefaultK           int
	RankedDefaultLimit int
}

// Retriever combines filtered vector search with exact structured reads over
// the corpus.
type Retriever struct {
	index  ports.VectorIndex
	corpus ports.CorpusStore
	cfg    RetrieverConfig
}

func NewRetriever(index ports.VectorIndex, corpus ports.CorpusStore, cfg RetrieverConfig) *Retriever {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = 8
	}
	if cfg.RankedDefaultLimit <= 0 {
		cfg.RankedDefaultLimit = 5
	}
	return &Retriever{index: index, corpus: corpus, cfg: cfg}
}

// Retrieve never fails outright. When the index or the query vector is
// unavailable it falls back to structured reads and marks the result
// degraded. Err is set to the caller's context error on cancellation.
func (r *Retriever) Retrieve(ctx context.Context, plan domain.QueryPlan, queryVector []float32, k int) domain.RetrievalResult {
	if k <= 0 {
		k = r.cfg.DefaultK
	}
	var res domain.RetrievalResult

	switch {
	case plan.Ranked():
		res.Candidates = r.rank(plan)
		res.Ranked = true
	case len(queryVector) == 0 || r.index == nil:
		res.Candidates = r.structuredFallback(plan, k)
		res.Degraded = true
		res.Err = domain.WrapError(domain.ErrRetrievalDegraded, "retrieve", errNoQueryVector)
	default:
		candidates, err := r.vectorSearch(ctx, plan.Filter, queryVector, k)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.Err = ctxErr
				return res
			}
			res.Candidates = r.structuredFallback(plan, k)
			res.Degraded = true
			res.Err = domain.WrapError(domain.ErrRetrievalDegraded, "vector search", err)
		} else {
			res.Candidates = candidates
		}
	}

	switch plan.Intent {
	case domain.IntentAggregate:
		agg := ComputeAggregate(r.scan(plan.Filter))
		res.Aggregate = &agg
	case domain.IntentCompare:
		res.Groups = r.compare(plan)
	}
	return res
}

// vectorSearch runs the filtered search and widens it with an unfiltered one
// when the filter leaves fewer than k/2 hits. Filtered hits stay in front and
// the union is cut back to k.
func (r *Retriever) vectorSearch(ctx context.Context, filter domain.Filter, queryVector []float32, k int) ([]domain.Candidate, error) {
	if r.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.SearchTimeout)
		defer cancel()
	}

	if filter.IsEmpty() {
		hits, err := r.index.Search(ctx, queryVector, k, domain.Filter{})
		if err != nil {
			return nil, err
		}
		return renumber(r.aboveThreshold(hits)), nil
	}

	filtered, err := r.index.Search(ctx, queryVector, k, filter)
	if err != nil {
		return nil, err
	}
	filtered = r.aboveThreshold(filtered)
	if len(filtered) >= k/2 {
		return renumber(filtered), nil
	}

	unfiltered, err := r.index.Search(ctx, queryVector, k, domain.Filter{})
	if err != nil {
		// The filtered hits are still usable on their own.
		return renumber(filtered), nil
	}

	seen := make(map[string]struct{}, len(filtered))
	merged := make([]domain.Candidate, 0, len(filtered)+len(unfiltered))
	for _, c := range filtered {
		seen[c.Chunk.ID] = struct{}{}
		merged = append(merged, c)
	}
	for _, c := range r.aboveThreshold(unfiltered) {
		if _, dup := seen[c.Chunk.ID]; dup {
			continue
		}
		seen[c.Chunk.ID] = struct{}{}
		merged = append(merged, c)
	}
	if len(merged) > k {
		merged = merged[:k]
	}
	return renumber(merged), nil
}

func (r *Retriever) aboveThreshold(hits []domain.Candidate) []domain.Candidate {
	out := hits[:0:0]
	for _, hit := range hits {
		if hit.Similarity >= r.cfg.MinSimilarity {
			out = append(out, hit)
		}
	}
	return out
}

// structuredFallback orders filter matches by lexical overlap with the
// residual text, then by amount. Without filters it is a lexical search.
func (r *Retriever) structuredFallback(plan domain.QueryPlan, k int) []domain.Candidate {
	if r.corpus == nil {
		return nil
	}
	query := textnorm.TokenSet(plan.Residual)

	if plan.Filter.IsEmpty() {
		chunks := r.corpus.Lexical(plan.Residual, domain.Filter{}, k)
		out := make([]domain.Candidate, 0, len(chunks))
		for i, chunk := range chunks {
			overlap := textnorm.Overlap(query, chunk.Text)
			out = append(out, domain.Candidate{Chunk: chunk, Similarity: overlap, Score: overlap, Rank: i + 1})
		}
		return out
	}

	chunks := r.corpus.Scan(plan.Filter)
	type scored struct {
		chunk   domain.Chunk
		overlap float64
	}
	hits := make([]scored, 0, len(chunks))
	for _, chunk := range chunks {
		hits = append(hits, scored{chunk: chunk, overlap: textnorm.Overlap(query, chunk.Text)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].overlap != hits[j].overlap {
			return hits[i].overlap > hits[j].overlap
		}
		return hits[i].chunk.Metadata.Amount > hits[j].chunk.Metadata.Amount
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]domain.Candidate, 0, len(hits))
	for i, h := range hits {
		out = append(out, domain.Candidate{Chunk: h.chunk, Similarity: h.overlap, Score: h.overlap, Rank: i + 1})
	}
	return out
}

// rank lists filter matches with a disclosed amount, largest first, keeping
// each company's largest round only.
func (r *Retriever) rank(plan domain.QueryPlan) []domain.Candidate {
	limit := plan.Limit
	if limit <= 0 {
		limit = r.cfg.RankedDefaultLimit
	}

	chunks := append([]domain.Chunk(nil), r.scan(plan.Filter)...)
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Metadata.Amount > chunks[j].Metadata.Amount
	})

	seen := make(map[string]struct{})
	out := make([]domain.Candidate, 0, limit)
	for _, chunk := range chunks {
		if len(out) == limit {
			break
		}
		if chunk.Metadata.Amount <= 0 {
			break
		}
		company := strings.ToLower(strings.Join(strings.Fields(chunk.Metadata.Company), " "))
		if _, dup := seen[company]; dup {
			continue
		}
		seen[company] = struct{}{}
		out = append(out, domain.Candidate{Chunk: chunk, Similarity: 1, Score: 1, Rank: len(out) + 1})
	}
	return out
}

func (r *Retriever) compare(plan domain.QueryPlan) []domain.GroupAggregate {
	if plan.Compare == nil {
		return nil
	}
	groups := make([]domain.GroupAggregate, 0, len(plan.Compare.Values))
	for _, value := range plan.Compare.Values {
		filter := plan.Filter
		switch plan.Compare.Dimension {
		case domain.CompareByCity:
			filter.City = value
		case domain.CompareBySector:
			filter.Sector = value
		case domain.CompareByYear:
			year, err := strconv.Atoi(value)
			if err != nil {
				continue
			}
			filter.Years = &domain.YearRange{From: year, To: year}
		}
		groups = append(groups, domain.GroupAggregate{
			Dimension: plan.Compare.Dimension,
			Value:     value,
			Aggregate: ComputeAggregate(r.scan(filter)),
		})
	}
	return groups
}

func (r *Retriever) scan(filter domain.Filter) []domain.Chunk {
	if r.corpus == nil {
		return nil
	}
	return r.corpus.Scan(filter)
}

func renumber(candidates []domain.Candidate) []domain.Candidate {
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates
}
