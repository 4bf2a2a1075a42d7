package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
)

type IndexConfig struct {
	BatchSize   int
	Concurrency int
}

// IndexCorpusUseCase embeds the corpus and writes it to the vector index,
// then announces the refresh so API instances reload.
type IndexCorpusUseCase struct {
	source   ports.CorpusSource
	embedder ports.Embedder
	index    ports.VectorIndexWriter
	refresh  ports.RefreshBus
	observer ports.IndexObserver
	cfg      IndexConfig
	now      func() time.Time
}

func NewIndexCorpusUseCase(
	source ports.CorpusSource,
	embedder ports.Embedder,
	index ports.VectorIndexWriter,
	refresh ports.RefreshBus,
	cfg IndexConfig,
) *IndexCorpusUseCase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	return &IndexCorpusUseCase{
		source:   source,
		embedder: embedder,
		index:    index,
		refresh:  refresh,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (uc *IndexCorpusUseCase) WithObserver(observer ports.IndexObserver) *IndexCorpusUseCase {
	uc.observer = observer
	return uc
}

func (uc *IndexCorpusUseCase) IndexCorpus(ctx context.Context) (int, error) {
	chunks, err := uc.loadCorpus(ctx)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.Concurrency)
	for start := 0; start < len(chunks); start += uc.cfg.BatchSize {
		batch := chunks[start:min(start+uc.cfg.BatchSize, len(chunks))]
		g.Go(func() error {
			return uc.indexBatch(gctx, batch)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if uc.refresh != nil {
		version := uc.now().UTC().Format(time.RFC3339Nano)
		if err := uc.refresh.PublishCorpusRefreshed(ctx, version); err != nil {
			return len(chunks), fmt.Errorf("publish corpus refresh: %w", err)
		}
	}
	return len(chunks), nil
}

func (uc *IndexCorpusUseCase) loadCorpus(ctx context.Context) ([]domain.Chunk, error) {
	chunks, err := uc.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrCorpusUnavailable, "load corpus", errors.New("corpus is empty"))
	}
	return chunks, nil
}

func (uc *IndexCorpusUseCase) indexBatch(ctx context.Context, batch []domain.Chunk) (err error) {
	if uc.observer != nil {
		started := uc.now()
		uc.observer.StartBatch()
		defer func() {
			uc.observer.FinishBatch(len(batch), uc.now().Sub(started), err)
		}()
	}

	vectors, err := uc.embed(ctx, batch)
	if err != nil {
		return err
	}
	if err := uc.index.Upsert(ctx, batch, vectors); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	return nil
}

// embed reuses embeddings shipped with the corpus when the whole batch has
// them, and asks the embedder otherwise.
func (uc *IndexCorpusUseCase) embed(ctx context.Context, batch []domain.Chunk) ([][]float32, error) {
	if vectors, ok := precomputedVectors(batch); ok {
		return vectors, nil
	}

	texts := make([]string, 0, len(batch))
	for _, chunk := range batch {
		texts = append(texts, chunk.Text)
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(batch))
	}
	return vectors, nil
}

func precomputedVectors(batch []domain.Chunk) ([][]float32, bool) {
	vectors := make([][]float32, 0, len(batch))
	for _, chunk := range batch {
		if len(chunk.Embedding) == 0 || len(chunk.Embedding) != len(batch[0].Embedding) {
			return nil, false
		}
		vectors = append(vectors, chunk.Embedding)
	}
	return vectors, true
}
