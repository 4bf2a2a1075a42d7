package ports

import (
	"context"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

// QueryService is the inbound contract for the multilingual question-answering pipeline.
type QueryService interface {
	Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
}

// StatsService computes exact aggregates over the corpus for a structured filter.
type StatsService interface {
	Stats(ctx context.Context, filter domain.Filter) (domain.Aggregate, error)
}

// CompanyService returns every funding round of one company.
type CompanyService interface {
	CompanyProfile(ctx context.Context, name string) (domain.CompanyProfile, error)
}

// CacheAdmin exposes response cache maintenance.
type CacheAdmin interface {
	InvalidateAll(ctx context.Context) error
	Stats() domain.CacheStats
}

// CorpusIndexer is the inbound contract for (re)building the vector index.
type CorpusIndexer interface {
	IndexCorpus(ctx context.Context) (int, error)
}
