package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

type corpusSourceFake struct {
	chunks []domain.Chunk
	err    error
}

func (f corpusSourceFake) Load(context.Context) ([]domain.Chunk, error) {
	return f.chunks, f.err
}

type vectorWriterFake struct {
	mu      sync.Mutex
	batches int
	stored  map[string][]float32
	err     error
}

func (f *vectorWriterFake) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.stored == nil {
		f.stored = map[string][]float32{}
	}
	f.batches++
	for i, chunk := range chunks {
		f.stored[chunk.ID] = vectors[i]
	}
	return nil
}

type refreshBusFake struct {
	versions []string
}

func (f *refreshBusFake) PublishCorpusRefreshed(_ context.Context, version string) error {
	f.versions = append(f.versions, version)
	return nil
}

func (f *refreshBusFake) SubscribeCorpusRefreshed(context.Context, func(context.Context, string) error) error {
	return nil
}

type indexObserverFake struct {
	mu       sync.Mutex
	started  int
	finished int
	chunks   int
}

func (f *indexObserverFake) StartBatch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *indexObserverFake) FinishBatch(chunks int, _ time.Duration, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished++
	f.chunks += chunks
}

func TestIndexCorpusEmbedsInBatchesAndPublishesRefresh(t *testing.T) {
	embedder := &embedderFake{}
	writer := &vectorWriterFake{}
	bus := &refreshBusFake{}
	observer := &indexObserverFake{}
	uc := NewIndexCorpusUseCase(corpusSourceFake{chunks: testCorpusChunks()}, embedder, writer, bus,
		IndexConfig{BatchSize: 5, Concurrency: 2}).WithObserver(observer)

	n, err := uc.IndexCorpus(context.Background())
	if err != nil {
		t.Fatalf("IndexCorpus() error = %v", err)
	}
	if n != 12 || len(writer.stored) != 12 {
		t.Fatalf("expected 12 indexed chunks, got n=%d stored=%d", n, len(writer.stored))
	}
	if writer.batches != 3 || embedder.embedCalls != 3 {
		t.Fatalf("expected 3 batches, got upserts=%d embeds=%d", writer.batches, embedder.embedCalls)
	}
	if observer.started != 3 || observer.finished != 3 || observer.chunks != 12 {
		t.Fatalf("unexpected observer counts %+v", observer)
	}
	if len(bus.versions) != 1 {
		t.Fatalf("expected one refresh notification, got %d", len(bus.versions))
	}
	if _, err := time.Parse(time.RFC3339Nano, bus.versions[0]); err != nil {
		t.Fatalf("expected RFC3339 version, got %q", bus.versions[0])
	}
}

func TestIndexCorpusReusesShippedEmbeddings(t *testing.T) {
	chunks := testCorpusChunks()[:2]
	chunks[0].Embedding = []float32{0.1, 0.2}
	chunks[1].Embedding = []float32{0.3, 0.4}
	embedder := &embedderFake{}
	writer := &vectorWriterFake{}

	_, err := NewIndexCorpusUseCase(corpusSourceFake{chunks: chunks}, embedder, writer, nil, IndexConfig{}).IndexCorpus(context.Background())
	if err != nil {
		t.Fatalf("IndexCorpus() error = %v", err)
	}
	if embedder.embedCalls != 0 {
		t.Fatalf("expected no embedding calls, got %d", embedder.embedCalls)
	}
	if got := writer.stored["r2"]; len(got) != 2 || got[0] != 0.3 {
		t.Fatalf("expected shipped vector for r2, got %v", got)
	}
}

func TestIndexCorpusRejectsEmptyCorpus(t *testing.T) {
	_, err := NewIndexCorpusUseCase(corpusSourceFake{}, &embedderFake{}, &vectorWriterFake{}, nil, IndexConfig{}).IndexCorpus(context.Background())
	if !errors.Is(err, domain.ErrCorpusUnavailable) {
		t.Fatalf("expected ErrCorpusUnavailable, got %v", err)
	}
}

func TestIndexCorpusStopsOnUpsertFailure(t *testing.T) {
	bus := &refreshBusFake{}
	writer := &vectorWriterFake{err: errors.New("qdrant unavailable")}
	_, err := NewIndexCorpusUseCase(corpusSourceFake{chunks: testCorpusChunks()}, &embedderFake{}, writer, bus, IndexConfig{BatchSize: 4}).
		IndexCorpus(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(bus.versions) != 0 {
		t.Fatalf("expected no refresh after a failed index run")
	}
}
