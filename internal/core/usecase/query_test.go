package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/money"
)

const lookupQuery = "What funding was raised in Bangalore in 2019?"

type pipelineFixture struct {
	uc         *QueryUseCase
	corpus     *corpusFake
	index      *indexFake
	embedder   *embedderFake
	generator  *generatorFake
	translator *translatorFake
	cache      *responseCacheFake
	observer   *observerFake
}

func newPipelineFixture(detector detectorFake) *pipelineFixture {
	corpus := newCorpusFake()
	f := &pipelineFixture{
		corpus:    corpus,
		index:     newIndexFake(corpus.chunks, 0.8),
		embedder:  &embedderFake{},
		generator: &generatorFake{out: "Cred raised ₹120 Cr in 2019 [2]."},
		translator: &translatorFake{fn: func(text, _, _ string) (string, error) {
			return text, nil
		}},
		cache:    newResponseCacheFake(),
		observer: &observerFake{},
	}

	terms := newTermCacheFake()
	uc := NewQueryUseCase(
		NewLanguageService(detector, "en", 0.5),
		NewTranslationService(terms, f.translator, time.Second),
		NewPlanner(corpus, terms, PlannerConfig{CurrentYear: 2021}),
		f.embedder,
		NewRetriever(f.index, corpus, RetrieverConfig{MinSimilarity: 0.25}),
		NewReranker(DefaultRerankWeights(), 8),
		NewAssembler(AssemblerConfig{Currency: "INR"}),
		NewGenerationService(f.generator, time.Second, 256),
		corpus,
		PipelineConfig{Currency: "INR"},
	)
	f.uc = uc.WithCache(f.cache).
		WithObserver(f.observer).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func englishFixture() *pipelineFixture {
	return newPipelineFixture(detectorFake{"en", 0.99})
}

func ask(t *testing.T, f *pipelineFixture, query string) *domain.QueryResponse {
	t.Helper()
	resp, err := f.uc.Answer(context.Background(), domain.QueryRequest{Query: query})
	if err != nil {
		t.Fatalf("Answer(%q) error = %v", query, err)
	}
	return resp
}

func TestAnswerLookupGeneratesFromContext(t *testing.T) {
	f := englishFixture()
	resp := ask(t, f, lookupQuery)

	if resp.Answer != f.generator.out {
		t.Fatalf("expected generated answer, got %q", resp.Answer)
	}
	if resp.Intent != domain.IntentLookup || resp.Language != "en" || resp.Degraded {
		t.Fatalf("unexpected response metadata %+v", resp)
	}
	if len(resp.Sources) != 4 {
		t.Fatalf("expected 4 sources, got %d", len(resp.Sources))
	}
	for _, s := range resp.Sources {
		if s.City != "Bangalore" || s.Reference == "" {
			t.Fatalf("unexpected source %+v", s)
		}
	}
	prompt := f.generator.prompts[0]
	if !strings.Contains(prompt, "[1] ") || !strings.Contains(prompt, lookupQuery) {
		t.Fatalf("expected numbered context and question in prompt:\n%s", prompt)
	}
}

func TestAnswerRepeatedQueryIsServedFromCache(t *testing.T) {
	f := englishFixture()
	first := ask(t, f, lookupQuery)
	second := ask(t, f, "  what funding was RAISED in bangalore in 2019? ")

	if !second.CacheHit || first.CacheHit {
		t.Fatalf("expected only the second answer to be a cache hit")
	}
	if second.Answer != first.Answer {
		t.Fatalf("expected cached answer %q, got %q", first.Answer, second.Answer)
	}
	if f.generator.callCount() != 1 {
		t.Fatalf("expected a single generation, got %d", f.generator.callCount())
	}
	if f.cache.putCount() != 1 || f.observer.cacheHits != 1 {
		t.Fatalf("expected one put and one hit, got puts=%d hits=%d", f.cache.putCount(), f.observer.cacheHits)
	}
}

func TestAnswerWithEmptyContextNeverGenerates(t *testing.T) {
	f := englishFixture()
	f.index.fallback = 0.1

	resp := ask(t, f, lookupQuery)
	if f.generator.callCount() != 0 {
		t.Fatalf("expected no generation, got %d calls", f.generator.callCount())
	}
	if resp.Answer != message("en", msgNoData) || len(resp.Sources) != 0 {
		t.Fatalf("expected no-data reply, got %+v", resp)
	}
}

func TestAnswerDegradesWhenIndexIsDown(t *testing.T) {
	f := englishFixture()
	f.index.err = errors.New("dial tcp: connection refused")

	resp := ask(t, f, lookupQuery)
	if !resp.Degraded {
		t.Fatalf("expected degraded response")
	}
	if strings.TrimSpace(resp.Answer) == "" || len(resp.Sources) == 0 {
		t.Fatalf("expected an answer with sources, got %+v", resp)
	}
	if f.cache.putCount() != 0 {
		t.Fatalf("expected degraded responses not to be cached")
	}
}

func TestAnswerDegradesWhenQueryEmbeddingFails(t *testing.T) {
	f := englishFixture()
	f.embedder.err = errors.New("embedding model not loaded")

	resp := ask(t, f, lookupQuery)
	if !resp.Degraded || len(resp.Sources) == 0 {
		t.Fatalf("expected degraded answer with sources, got %+v", resp)
	}
	if f.index.searches() != 0 {
		t.Fatalf("expected the index not to be searched without a vector")
	}
}

func TestAnswerListsCitationsWhenGenerationFails(t *testing.T) {
	f := englishFixture()
	f.generator.err = errors.New("model server returned 500")

	resp := ask(t, f, lookupQuery)
	if !resp.Degraded {
		t.Fatalf("expected degraded response")
	}
	if !strings.HasPrefix(resp.Answer, message("en", msgDegradedHeader)) || !strings.Contains(resp.Answer, "Cred") {
		t.Fatalf("expected citation list, got %q", resp.Answer)
	}
}

func TestAnswerTopFintechStartupsInBangalore(t *testing.T) {
	f := englishFixture()
	resp := ask(t, f, "Top 5 fintech startups in Bangalore")

	if len(resp.Sources) == 0 || len(resp.Sources) > 5 {
		t.Fatalf("expected 1..5 sources, got %d", len(resp.Sources))
	}
	seen := map[string]bool{}
	for i, s := range resp.Sources {
		if seen[s.Company] {
			t.Fatalf("duplicate company %s", s.Company)
		}
		seen[s.Company] = true
		if i > 0 && s.Amount > resp.Sources[i-1].Amount {
			t.Fatalf("expected descending amounts, got %v after %v", s.Amount, resp.Sources[i-1].Amount)
		}
	}
	if !strings.HasPrefix(resp.Answer, "Top 5 startups") {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if f.generator.callCount() != 0 || f.embedder.queryCalls != 0 {
		t.Fatalf("expected no generation or embedding, got %d and %d", f.generator.callCount(), f.embedder.queryCalls)
	}
}

func TestAnswerAggregateUsesExactSum(t *testing.T) {
	f := englishFixture()
	resp := ask(t, f, "Total funding in Karnataka 2019")

	if resp.Intent != domain.IntentAggregate || resp.Aggregate == nil {
		t.Fatalf("expected AGGREGATE with figures, got %+v", resp)
	}
	var want float64
	for _, chunk := range f.corpus.chunks {
		if chunk.Metadata.State == "Karnataka" && chunk.Metadata.Year == 2019 {
			want += chunk.Metadata.Amount
		}
	}
	if resp.Aggregate.Sum != want {
		t.Fatalf("expected sum %v, got %v", want, resp.Aggregate.Sum)
	}
	if !strings.Contains(resp.Answer, money.FormatExact(want, "INR")) {
		t.Fatalf("expected exact total in answer, got %q", resp.Answer)
	}
	if f.generator.callCount() != 0 {
		t.Fatalf("expected aggregate answers not to call the generator")
	}
}

func TestAnswerComparesCities(t *testing.T) {
	f := englishFixture()
	resp := ask(t, f, "Compare fintech funding in Bangalore vs Mumbai")

	if resp.Intent != domain.IntentCompare || len(resp.Groups) != 2 {
		t.Fatalf("expected comparison over 2 groups, got %+v", resp)
	}
	if !strings.Contains(resp.Answer, message("en", msgHighest)+": Bangalore") {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
}

func TestAnswerOutOfRangeYears(t *testing.T) {
	f := englishFixture()
	resp := ask(t, f, "Total funding in Karnataka in 2030")

	if resp.Answer != message("en", msgOutOfRange, 2018, 2021) {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if f.embedder.queryCalls != 0 || f.index.searches() != 0 {
		t.Fatalf("expected retrieval to be skipped")
	}
}

func TestAnswerUnclearQuery(t *testing.T) {
	resp := ask(t, englishFixture(), "?? 123 !!")
	if resp.Intent != domain.IntentUnknown || resp.Answer != message("en", msgUnclear) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAnswerRejectsInvalidInput(t *testing.T) {
	f := englishFixture()
	for _, query := range []string{"   ", strings.Repeat("a", 1001)} {
		_, err := f.uc.Answer(context.Background(), domain.QueryRequest{Query: query})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	}
}

func TestAnswerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := englishFixture().uc.Answer(ctx, domain.QueryRequest{Query: lookupQuery})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnswerRendersHindiAggregateWithoutBackTranslation(t *testing.T) {
	f := newPipelineFixture(detectorFake{"hi", 0.95})
	var mu sync.Mutex
	var targets []string
	f.translator.fn = func(text, from, to string) (string, error) {
		mu.Lock()
		targets = append(targets, to)
		mu.Unlock()
		if to == "en" {
			return "Total funding in Karnataka in 2019", nil
		}
		// A model rewrite that corrupts the figure.
		return "कर्नाटक में 2019 की कुल फंडिंग ₹999 करोड़ है", nil
	}

	resp := ask(t, f, "2019 में कर्नाटक में कुल फंडिंग")
	if resp.Intent != domain.IntentAggregate || resp.Aggregate == nil {
		t.Fatalf("expected AGGREGATE with figures, got %+v", resp)
	}
	if resp.Language != "hi" || resp.Degraded {
		t.Fatalf("unexpected response metadata %+v", resp)
	}
	want := resp.Aggregate.Sum
	if !strings.Contains(resp.Answer, message("hi", msgTotalFunding)) || !strings.Contains(resp.Answer, money.FormatExact(want, "INR")) {
		t.Fatalf("expected Hindi labels with the exact total, got %q", resp.Answer)
	}
	if strings.Contains(resp.Answer, "999") {
		t.Fatalf("expected figures not to pass through the translator, got %q", resp.Answer)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, to := range targets {
		if to != "en" {
			t.Fatalf("expected only the question to be translated, got calls to %v", targets)
		}
	}
}

func TestAnswerRendersRankedListInAskerLanguage(t *testing.T) {
	f := newPipelineFixture(detectorFake{"ta", 0.95})
	f.translator.fn = func(text, from, to string) (string, error) {
		if to == "en" {
			return "Top 3 fintech startups in Bangalore", nil
		}
		return "", errors.New("answer must not be translated")
	}

	resp := ask(t, f, "பெங்களூருவில் உள்ள முதல் 3 ஃபின்டெக் ஸ்டார்ட்அப்கள்")
	if resp.Language != "ta" || resp.Degraded {
		t.Fatalf("expected a Tamil answer, got %+v", resp)
	}
	if !strings.HasPrefix(resp.Answer, message("ta", msgRankedHeader, len(resp.Sources))) {
		t.Fatalf("expected Tamil ranked header, got %q", resp.Answer)
	}
}

func TestAnswerReturnsEnglishWhenBackTranslationFails(t *testing.T) {
	f := newPipelineFixture(detectorFake{"hi", 0.95})
	f.translator.fn = func(text, from, to string) (string, error) {
		if to == "en" {
			return lookupQuery, nil
		}
		return "", errors.New("translator timeout")
	}

	resp := ask(t, f, "2019 में बेंगलुरु के स्टार्टअप्स की फंडिंग बताओ")
	if resp.Intent != domain.IntentLookup {
		t.Fatalf("expected LOOKUP, got %s", resp.Intent)
	}
	if resp.Language != "en" || !resp.Degraded {
		t.Fatalf("expected degraded English answer, got %+v", resp)
	}
	if resp.Answer != f.generator.out {
		t.Fatalf("expected the untranslated generated answer, got %q", resp.Answer)
	}
}

func TestAnswerIsNotCachedWhenCorpusReloadsDuringGeneration(t *testing.T) {
	f := englishFixture()
	f.generator.during = func() {
		f.corpus.version++
		_ = f.cache.InvalidateAll(context.Background())
	}

	first := ask(t, f, lookupQuery)
	second := ask(t, f, lookupQuery)

	if first.CacheHit || second.CacheHit {
		t.Fatalf("expected no cache hit across a reload, got first=%v second=%v", first.CacheHit, second.CacheHit)
	}
	if f.generator.callCount() != 2 {
		t.Fatalf("expected a fresh generation after the reload, got %d", f.generator.callCount())
	}
	if f.cache.putCount() != 0 {
		t.Fatalf("expected answers planned against an old corpus not to be stored, got %d puts", f.cache.putCount())
	}
}

func TestAnswerConcurrentQueries(t *testing.T) {
	f := englishFixture()
	queries := []string{
		lookupQuery,
		"Total funding in Karnataka 2019",
		"Top 5 fintech startups in Bangalore",
		"Compare fintech funding in Bangalore vs Mumbai",
	}

	const perQuery = 8
	var wg sync.WaitGroup
	errs := make(chan error, perQuery*len(queries))
	for i := 0; i < perQuery; i++ {
		for _, q := range queries {
			wg.Add(1)
			go func(q string) {
				defer wg.Done()
				resp, err := f.uc.Answer(context.Background(), domain.QueryRequest{Query: q})
				if err != nil {
					errs <- err
					return
				}
				if strings.TrimSpace(resp.Answer) == "" || resp.Degraded {
					errs <- errors.New("unexpected reply for " + q + ": " + resp.Answer)
				}
			}(q)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	// Every distinct question was stored at least once and later copies
	// may have been served from the cache.
	if puts := f.cache.putCount(); puts < len(queries) || puts > perQuery*len(queries) {
		t.Fatalf("unexpected put count %d", puts)
	}
	if stats := f.cache.Stats(); stats.Entries != len(queries) {
		t.Fatalf("expected one cache entry per question, got %d", stats.Entries)
	}
}

func TestAnswerPublishesAnalyticsEvent(t *testing.T) {
	f := englishFixture()
	events := &eventsFake{events: make(chan domain.QueryEvent, 1)}
	f.uc.WithEvents(events)

	ctx := domain.WithRequestID(context.Background(), "req-42")
	if _, err := f.uc.Answer(ctx, domain.QueryRequest{Query: lookupQuery}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	select {
	case event := <-events.events:
		if event.RequestID != "req-42" || event.ID == "" || event.Intent != domain.IntentLookup {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected an analytics event")
	}
}

func TestAnswerComparesYearsWithGrowth(t *testing.T) {
	resp := ask(t, englishFixture(), "Compare funding in 2019 and 2020")
	if resp.Intent != domain.IntentCompare {
		t.Fatalf("expected COMPARE, got %s", resp.Intent)
	}
	if !strings.Contains(resp.Answer, "% vs 2019") {
		t.Fatalf("expected growth against 2019, got %q", resp.Answer)
	}
}
