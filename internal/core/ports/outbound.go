package ports

import (
	"context"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

// LanguageDetector guesses the language of free text.
type LanguageDetector interface {
	Detect(text string) (code string, confidence float64)
}

// ExternalTranslator is the uncached, best-effort translation capability.
type ExternalTranslator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// TermCache maps terms between languages and remembers prior translations.
type TermCache interface {
	Get(sourceLang, targetLang, term string) (string, bool)
	Put(entry domain.TranslationEntry)
	Reverse(lang string) map[string]string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex performs nearest-neighbour search restricted by a metadata filter.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.Filter) ([]domain.Candidate, error)
}

// VectorIndexWriter stores chunk vectors.
type VectorIndexWriter interface {
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
}

// CorpusStore is the structured, read-only view over the loaded chunks.
type CorpusStore interface {
	Scan(filter domain.Filter) []domain.Chunk
	Lexical(text string, filter domain.Filter, limit int) []domain.Chunk
	YearSpan() (int, int)
	Vocabulary() domain.Vocabulary
}

// TextGenerator is the stateless prompt-in/text-out language model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ResponseCache stores final answers by fingerprint.
type ResponseCache interface {
	Get(ctx context.Context, fingerprint string) (domain.CacheEntry, bool)
	Put(ctx context.Context, fingerprint string, response domain.QueryResponse, ttl time.Duration) error
	InvalidateAll(ctx context.Context) error
	Stats() domain.CacheStats
}
