package ports

import (
	"context"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

// TermStore persists translation cache entries.
type TermStore interface {
	LoadAll(ctx context.Context) ([]domain.TranslationEntry, error)
	UpsertBatch(ctx context.Context, entries []domain.TranslationEntry) error
}

// EventPublisher emits analytics events. Implementations must not block the caller for long.
type EventPublisher interface {
	PublishQueryEvent(ctx context.Context, event domain.QueryEvent) error
}

// RefreshBus announces and delivers corpus refresh notifications.
type RefreshBus interface {
	PublishCorpusRefreshed(ctx context.Context, version string) error
	SubscribeCorpusRefreshed(ctx context.Context, handler func(context.Context, string) error) error
}

// CorpusSource loads the finalized corpus produced by ingestion.
type CorpusSource interface {
	Load(ctx context.Context) ([]domain.Chunk, error)
}

// PipelineObserver receives query pipeline measurements.
type PipelineObserver interface {
	ObserveStage(stage string, elapsed time.Duration)
	ObserveQuery(intent domain.Intent, outcome string, elapsed time.Duration)
	ObserveCache(hit bool)
	ObserveCandidates(count int)
}

// IndexObserver receives corpus indexing measurements.
type IndexObserver interface {
	StartBatch()
	FinishBatch(chunks int, elapsed time.Duration, err error)
}
