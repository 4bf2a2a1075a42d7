package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/textnorm"
)

func fundingChunk(id, company, city, state, sector, round string, year int, amount float64, investors ...string) domain.Chunk {
	return domain.Chunk{
		ID:   id,
		Text: company + " is a " + sector + " startup based in " + city + " that raised a " + round + " round.",
		Metadata: domain.ChunkMetadata{
			Company:   company,
			City:      city,
			State:     state,
			Sector:    sector,
			Investors: investors,
			Round:     round,
			Amount:    amount,
			Year:      year,
		},
	}
}

func testCorpusChunks() []domain.Chunk {
	return []domain.Chunk{
		fundingChunk("r1", "Razorpay", "Bangalore", "Karnataka", "fintech", "Series C", 2019, 7_500_000_000, "Sequoia Capital", "Ribbit Capital"),
		fundingChunk("r2", "Razorpay", "Bangalore", "Karnataka", "fintech", "Series B", 2018, 1_500_000_000, "Sequoia Capital"),
		fundingChunk("r3", "Cred", "Bangalore", "Karnataka", "fintech", "Series A", 2019, 1_200_000_000, "Sequoia Capital"),
		fundingChunk("r4", "Jupiter", "Bangalore", "Karnataka", "fintech", "Seed", 2019, 300_000_000, "Matrix Partners"),
		fundingChunk("r5", "Slice", "Bangalore", "Karnataka", "fintech", "Series B", 2020, 2_000_000_000, "Tiger Global"),
		fundingChunk("r6", "Fi Money", "Bangalore", "Karnataka", "fintech", "Series A", 2021, 900_000_000, "Accel Partners"),
		fundingChunk("r7", "Open Financial", "Bangalore", "Karnataka", "fintech", "Series A", 2020, 0),
		fundingChunk("r8", "Zeta", "Bangalore", "Karnataka", "fintech", "Series C", 2018, 2_800_000_000, "Sodexo"),
		fundingChunk("r9", "Byju's", "Bangalore", "Karnataka", "edtech", "Series F", 2019, 10_000_000_000, "Tiger Global"),
		fundingChunk("r10", "Mfine", "Mysore", "Karnataka", "healthtech", "Seed", 2019, 50_000_000, "Prime Venture Partners"),
		fundingChunk("r11", "PolicyBazaar", "Gurgaon", "Haryana", "fintech", "Series F", 2019, 3_000_000_000, "SoftBank"),
		fundingChunk("r12", "Nykaa", "Mumbai", "Maharashtra", "e-commerce", "Private Equity", 2020, 1_000_000_000, "Steadview Capital"),
	}
}

type corpusFake struct {
	chunks  []domain.Chunk
	version uint64
}

func newCorpusFake() *corpusFake {
	return &corpusFake{chunks: testCorpusChunks(), version: 1}
}

func (f *corpusFake) Scan(filter domain.Filter) []domain.Chunk {
	var out []domain.Chunk
	for _, chunk := range f.chunks {
		if filter.Matches(chunk.Metadata) {
			out = append(out, chunk)
		}
	}
	return out
}

func (f *corpusFake) Lexical(text string, filter domain.Filter, limit int) []domain.Chunk {
	query := textnorm.TokenSet(text)
	type hit struct {
		chunk domain.Chunk
		score float64
	}
	var hits []hit
	for _, chunk := range f.Scan(filter) {
		if score := textnorm.Overlap(query, chunk.Text); score > 0 {
			hits = append(hits, hit{chunk: chunk, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	out := make([]domain.Chunk, 0, len(hits))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.chunk)
	}
	return out
}

func (f *corpusFake) YearSpan() (int, int) {
	minYear, maxYear := 0, 0
	for _, chunk := range f.chunks {
		year := chunk.Metadata.Year
		if minYear == 0 || year < minYear {
			minYear = year
		}
		if year > maxYear {
			maxYear = year
		}
	}
	return minYear, maxYear
}

func (f *corpusFake) Vocabulary() domain.Vocabulary {
	vocab := domain.Vocabulary{Version: f.version}
	seen := map[string]struct{}{}
	add := func(list *[]string, kind, value string) {
		if value == "" {
			return
		}
		if _, ok := seen[kind+value]; ok {
			return
		}
		seen[kind+value] = struct{}{}
		*list = append(*list, value)
	}
	for _, chunk := range f.chunks {
		meta := chunk.Metadata
		add(&vocab.Companies, "company", meta.Company)
		add(&vocab.Cities, "city", meta.City)
		add(&vocab.States, "state", meta.State)
		add(&vocab.Sectors, "sector", meta.Sector)
		add(&vocab.Rounds, "round", meta.Round)
		for _, investor := range meta.Investors {
			add(&vocab.Investors, "investor", investor)
		}
	}
	return vocab
}

// indexFake returns every chunk matching the filter with a fixed similarity.
type indexFake struct {
	mu         sync.Mutex
	chunks     []domain.Chunk
	similarity map[string]float64
	fallback   float64
	err        error
	filters    []domain.Filter
}

func newIndexFake(chunks []domain.Chunk, similarity float64) *indexFake {
	return &indexFake{chunks: chunks, fallback: similarity, similarity: map[string]float64{}}
}

func (f *indexFake) Search(_ context.Context, _ []float32, limit int, filter domain.Filter) ([]domain.Candidate, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var out []domain.Candidate
	for _, chunk := range f.chunks {
		if !filter.Matches(chunk.Metadata) {
			continue
		}
		sim, ok := f.similarity[chunk.ID]
		if !ok {
			sim = f.fallback
		}
		out = append(out, domain.Candidate{Chunk: chunk, Similarity: sim, Score: sim})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (f *indexFake) searches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.filters)
}

type embedderFake struct {
	mu         sync.Mutex
	embedCalls int
	queryCalls int
	err        error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for i := range texts {
		out = append(out, []float32{float32(i), 1})
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

type generatorFake struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	out     string
	err     error
	block   bool
	// during runs inside Generate, before the reply is returned.
	during func()
}

func (f *generatorFake) Generate(ctx context.Context, prompt string, _ int) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	out, err, block, during := f.out, f.err, f.block, f.during
	f.mu.Unlock()

	if during != nil {
		during()
	}

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

func (f *generatorFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type translatorFake struct {
	mu    sync.Mutex
	calls int
	fn    func(text, from, to string) (string, error)
}

func (f *translatorFake) Translate(_ context.Context, text, from, to string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(text, from, to)
}

func (f *translatorFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type termCacheFake struct {
	mu      sync.Mutex
	entries map[string]domain.TranslationEntry
}

func newTermCacheFake() *termCacheFake {
	return &termCacheFake{entries: map[string]domain.TranslationEntry{}}
}

func (f *termCacheFake) Get(sourceLang, targetLang, term string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[sourceLang+"|"+targetLang+"|"+term]
	return entry.TranslatedTerm, ok
}

func (f *termCacheFake) Put(entry domain.TranslationEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.SourceLang+"|"+entry.TargetLang+"|"+entry.SourceTerm] = entry
}

func (f *termCacheFake) Reverse(lang string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for _, entry := range f.entries {
		if entry.SourceLang == lang && entry.TargetLang == domain.PivotLanguage {
			out[entry.SourceTerm] = entry.TranslatedTerm
		}
	}
	return out
}

type detectorFake struct {
	code       string
	confidence float64
}

func (f detectorFake) Detect(string) (string, float64) {
	return f.code, f.confidence
}

type responseCacheFake struct {
	mu      sync.Mutex
	entries map[string]domain.CacheEntry
	puts    int
}

func newResponseCacheFake() *responseCacheFake {
	return &responseCacheFake{entries: map[string]domain.CacheEntry{}}
}

func (f *responseCacheFake) Get(_ context.Context, fingerprint string) (domain.CacheEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[fingerprint]
	if !ok || entry.Expired(time.Now()) {
		return domain.CacheEntry{}, false
	}
	return entry, true
}

func (f *responseCacheFake) Put(_ context.Context, fingerprint string, response domain.QueryResponse, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	now := time.Now()
	f.entries[fingerprint] = domain.CacheEntry{
		Fingerprint: fingerprint,
		Response:    response,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	return nil
}

func (f *responseCacheFake) InvalidateAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = map[string]domain.CacheEntry{}
	return nil
}

func (f *responseCacheFake) Stats() domain.CacheStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.CacheStats{Backend: "fake", Entries: len(f.entries)}
}

func (f *responseCacheFake) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

type eventsFake struct {
	events chan domain.QueryEvent
}

func (f *eventsFake) PublishQueryEvent(_ context.Context, event domain.QueryEvent) error {
	f.events <- event
	return nil
}

type observerFake struct {
	mu        sync.Mutex
	stages    []string
	outcomes  []string
	cacheHits int
}

func (f *observerFake) ObserveStage(stage string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, stage)
}

func (f *observerFake) ObserveQuery(_ domain.Intent, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func (f *observerFake) ObserveCache(hit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hit {
		f.cacheHits++
	}
}

func (f *observerFake) ObserveCandidates(int) {}
