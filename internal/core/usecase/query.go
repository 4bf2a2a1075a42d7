package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
)

const (
	outcomeAnswered   = "answered"
	outcomeTemplate   = "template"
	outcomeCacheHit   = "cache_hit"
	outcomeNoData     = "no_data"
	outcomeOutOfRange = "out_of_range"
	outcomeUnclear    = "unclear"
	outcomeDegraded   = "degraded"
	outcomeFailed     = "failed"

	eventPublishTimeout = 2 * time.Second
)

type PipelineConfig struct {
	RetrievalK    int
	CacheTTL      time.Duration
	Currency      string
	MaxQueryRunes int
}

// QueryUseCase answers funding questions in the asker's language. Every
// failure below input validation degrades the answer instead of failing it.
type QueryUseCase struct {
	languages  *LanguageService
	translator *TranslationService
	planner    *Planner
	embedder   ports.Embedder
	retriever  *Retriever
	reranker   *Reranker
	assembler  *Assembler
	generation *GenerationService
	corpus     ports.CorpusStore
	cfg        PipelineConfig

	cache    ports.ResponseCache
	events   ports.EventPublisher
	observer ports.PipelineObserver
	logger   *slog.Logger
	now      func() time.Time
}

func NewQueryUseCase(
	languages *LanguageService,
	translator *TranslationService,
	planner *Planner,
	embedder ports.Embedder,
	retriever *Retriever,
	reranker *Reranker,
	assembler *Assembler,
	generation *GenerationService,
	corpus ports.CorpusStore,
	cfg PipelineConfig,
) *QueryUseCase {
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 8
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.MaxQueryRunes <= 0 {
		cfg.MaxQueryRunes = 1000
	}
	return &QueryUseCase{
		languages:  languages,
		translator: translator,
		planner:    planner,
		embedder:   embedder,
		retriever:  retriever,
		reranker:   reranker,
		assembler:  assembler,
		generation: generation,
		corpus:     corpus,
		cfg:        cfg,
		observer:   noopObserver{},
		logger:     slog.Default(),
		now:        time.Now,
	}
}

func (uc *QueryUseCase) WithCache(cache ports.ResponseCache) *QueryUseCase {
	uc.cache = cache
	return uc
}

func (uc *QueryUseCase) WithEvents(events ports.EventPublisher) *QueryUseCase {
	uc.events = events
	return uc
}

func (uc *QueryUseCase) WithObserver(observer ports.PipelineObserver) *QueryUseCase {
	if observer != nil {
		uc.observer = observer
	}
	return uc
}

func (uc *QueryUseCase) WithLogger(logger *slog.Logger) *QueryUseCase {
	if logger != nil {
		uc.logger = logger
	}
	return uc
}

// queryState carries one request through the stages.
type queryState struct {
	query   string
	hint    string
	lang    string
	pivot   string
	plan    domain.QueryPlan
	fp      string
	version uint64
	started time.Time

	retrieval  domain.RetrievalResult
	candidates []domain.Candidate
	block      string
	citations  []domain.Citation

	answer     string
	answerLang string
	localized  bool
	degraded   bool
	outcome    string
}

// A stage either continues (nil, nil), ends the request with a reply, or
// fails it. Only invalid input and cancellation fail a request.
type stage struct {
	name string
	run  func(context.Context, *queryState) (*domain.QueryResponse, error)
}

func (uc *QueryUseCase) stages() []stage {
	return []stage{
		{"validate", uc.validate},
		{"language", uc.resolveLanguage},
		{"translate_query", uc.translateQuery},
		{"plan", uc.planQuery},
		{"cache_lookup", uc.lookupCache},
		{"year_range", uc.checkYearRange},
		{"retrieve", uc.retrieve},
		{"rerank", uc.rerank},
		{"assemble", uc.assemble},
		{"answer", uc.answer},
		{"translate_answer", uc.translateAnswer},
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	st := &queryState{query: strings.TrimSpace(req.Query), hint: req.Language, started: uc.now()}

	var resp *domain.QueryResponse
	for _, s := range uc.stages() {
		if err := ctx.Err(); err != nil {
			uc.observer.ObserveQuery(st.plan.Intent, outcomeFailed, uc.now().Sub(st.started))
			return nil, err
		}
		begin := uc.now()
		terminal, err := s.run(ctx, st)
		uc.observer.ObserveStage(s.name, uc.now().Sub(begin))
		if err != nil {
			uc.observer.ObserveQuery(st.plan.Intent, outcomeFailed, uc.now().Sub(st.started))
			return nil, err
		}
		if terminal != nil {
			resp = terminal
			break
		}
	}
	if resp == nil {
		resp = st.response()
	}

	if !resp.CacheHit {
		uc.storeResponse(ctx, st, *resp)
	}
	if resp.Degraded && (st.outcome == outcomeAnswered || st.outcome == outcomeTemplate) {
		st.outcome = outcomeDegraded
	}
	elapsed := uc.now().Sub(st.started)
	uc.observer.ObserveQuery(resp.Intent, st.outcome, elapsed)
	uc.emitEvent(ctx, st, resp, elapsed)
	return resp, nil
}

func (uc *QueryUseCase) validate(_ context.Context, st *queryState) (*domain.QueryResponse, error) {
	if st.query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate query", errors.New("query is empty"))
	}
	if n := utf8.RuneCountInString(st.query); n > uc.cfg.MaxQueryRunes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate query",
			errors.New("query exceeds "+strconv.Itoa(uc.cfg.MaxQueryRunes)+" characters"))
	}
	return nil, nil
}

func (uc *QueryUseCase) resolveLanguage(_ context.Context, st *queryState) (*domain.QueryResponse, error) {
	lang, err := uc.languages.Resolve(st.query, st.hint)
	if err != nil {
		uc.logger.Info("language_fallback", "language", lang, "error", err)
	}
	st.lang = lang
	st.answerLang = lang
	return nil, nil
}

func (uc *QueryUseCase) translateQuery(ctx context.Context, st *queryState) (*domain.QueryResponse, error) {
	st.pivot = st.query
	if st.lang == domain.PivotLanguage || uc.translator == nil {
		return nil, nil
	}
	pivot, err := uc.translator.Translate(ctx, st.query, st.lang, domain.PivotLanguage)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		uc.logger.Warn("translation_fallback", "direction", "query", "language", st.lang, "error", err)
		return nil, nil
	}
	st.pivot = pivot
	return nil, nil
}

func (uc *QueryUseCase) planQuery(_ context.Context, st *queryState) (*domain.QueryResponse, error) {
	st.plan = uc.planner.ParseTranslated(st.query, st.pivot, st.lang)
	if st.plan.Intent == domain.IntentUnknown {
		st.outcome = outcomeUnclear
		return st.fixedReply(message(st.lang, msgUnclear)), nil
	}
	st.version = uc.corpusVersion()
	st.fp = Fingerprint(st.query, st.lang, st.plan.Filter, st.version)
	return nil, nil
}

func (uc *QueryUseCase) lookupCache(ctx context.Context, st *queryState) (*domain.QueryResponse, error) {
	if uc.cache == nil {
		return nil, nil
	}
	entry, ok := uc.cache.Get(ctx, st.fp)
	uc.observer.ObserveCache(ok)
	if !ok {
		return nil, nil
	}
	uc.logger.Debug("cache_hit", "fingerprint", st.fp)
	st.outcome = outcomeCacheHit
	resp := entry.Response
	resp.CacheHit = true
	return &resp, nil
}

// checkYearRange answers directly when every requested year lies outside
// the years the corpus covers.
func (uc *QueryUseCase) checkYearRange(_ context.Context, st *queryState) (*domain.QueryResponse, error) {
	if uc.corpus == nil {
		return nil, nil
	}
	minYear, maxYear := uc.corpus.YearSpan()
	if maxYear == 0 {
		return nil, nil
	}

	var requested []domain.YearRange
	if st.plan.Filter.Years != nil {
		requested = append(requested, *st.plan.Filter.Years)
	}
	if cmp := st.plan.Compare; cmp != nil && cmp.Dimension == domain.CompareByYear {
		for _, v := range cmp.Values {
			if year, err := strconv.Atoi(v); err == nil {
				requested = append(requested, domain.YearRange{From: year, To: year})
			}
		}
	}
	if len(requested) == 0 {
		return nil, nil
	}
	for _, r := range requested {
		if r.To >= minYear && r.From <= maxYear {
			return nil, nil
		}
	}

	st.outcome = outcomeOutOfRange
	return st.fixedReply(message(st.lang, msgOutOfRange, minYear, maxYear)), nil
}

func (uc *QueryUseCase) retrieve(ctx context.Context, st *queryState) (*domain.QueryResponse, error) {
	var vector []float32
	if !st.plan.Ranked() && uc.embedder != nil {
		v, err := uc.embedder.EmbedQuery(ctx, st.pivot)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			uc.logger.Warn("query_embedding_failed", "error", err)
		} else {
			vector = v
		}
	}

	st.retrieval = uc.retriever.Retrieve(ctx, st.plan, vector, uc.cfg.RetrievalK)
	if st.retrieval.Err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
	if st.retrieval.Degraded {
		st.degraded = true
		uc.logger.Warn("retrieval_degraded", "intent", st.plan.Intent, "error", st.retrieval.Err)
	}
	uc.observer.ObserveCandidates(len(st.retrieval.Candidates))
	return nil, nil
}

func (uc *QueryUseCase) rerank(_ context.Context, st *queryState) (*domain.QueryResponse, error) {
	if st.retrieval.Ranked {
		st.candidates = st.retrieval.Candidates
		return nil, nil
	}
	st.candidates = uc.reranker.Rerank(st.retrieval.Candidates, st.plan)
	return nil, nil
}

func (uc *QueryUseCase) assemble(_ context.Context, st *queryState) (*domain.QueryResponse, error) {
	st.block, st.citations = uc.assembler.Assemble(st.candidates)

	if st.hasContext() {
		return nil, nil
	}
	uc.logger.Info("empty_context", "intent", st.plan.Intent,
		"error", domain.WrapError(domain.ErrEmptyContext, "assemble", errors.New("no matching records")))
	st.outcome = outcomeNoData
	return st.fixedReply(message(st.lang, msgNoData)), nil
}

func (uc *QueryUseCase) answer(ctx context.Context, st *queryState) (*domain.QueryResponse, error) {
	switch {
	case st.plan.Intent == domain.IntentAggregate && st.retrieval.Aggregate != nil:
		st.answer = renderAggregate(st.lang, st.plan.Filter, *st.retrieval.Aggregate, uc.cfg.Currency)
	case st.plan.Intent == domain.IntentCompare:
		st.answer = renderComparison(st.lang, st.plan.Filter, st.retrieval.Groups, uc.cfg.Currency)
	case st.retrieval.Ranked:
		st.answer = renderRanked(st.lang, st.plan.Filter, st.citations, uc.cfg.Currency)
	}
	if st.answer != "" {
		// Figures are already in the asker's language; back-translation
		// would hand them to the model.
		st.localized = true
		st.outcome = outcomeTemplate
		return nil, nil
	}

	prompt := BuildPrompt(st.pivot, st.block, nil, nil, uc.cfg.Currency)
	text, err := uc.generation.Generate(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		uc.logger.Warn("generation_failed", "error", err,
			"timeout", domain.IsKind(err, domain.ErrGenerationTimeout))
		st.answer = renderCitationList(st.lang, st.citations, uc.cfg.Currency)
		st.localized = true
		st.degraded = true
		st.outcome = outcomeDegraded
		return nil, nil
	}
	st.answer = text
	st.outcome = outcomeAnswered
	return nil, nil
}

func (uc *QueryUseCase) translateAnswer(ctx context.Context, st *queryState) (*domain.QueryResponse, error) {
	if st.localized || st.lang == domain.PivotLanguage || uc.translator == nil {
		return nil, nil
	}
	translated, err := uc.translator.Translate(ctx, st.answer, domain.PivotLanguage, st.lang)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		uc.logger.Warn("translation_fallback", "direction", "answer", "language", st.lang, "error", err)
		st.answerLang = domain.PivotLanguage
		st.degraded = true
		return nil, nil
	}
	st.answer = translated
	return nil, nil
}

func (uc *QueryUseCase) storeResponse(ctx context.Context, st *queryState, resp domain.QueryResponse) {
	if uc.cache == nil || st.fp == "" || resp.Degraded {
		return
	}
	if v := uc.corpusVersion(); v != st.version {
		uc.logger.Info("cache_put_skipped", "fingerprint", st.fp, "reason", "corpus_reloaded",
			"planned_version", st.version, "current_version", v)
		return
	}
	if err := uc.cache.Put(ctx, st.fp, resp, uc.cfg.CacheTTL); err != nil {
		uc.logger.Warn("cache_put_failed", "fingerprint", st.fp, "error", err)
	}
}

// emitEvent publishes the analytics record in the background. Publishing
// failures never reach the caller.
func (uc *QueryUseCase) emitEvent(ctx context.Context, st *queryState, resp *domain.QueryResponse, elapsed time.Duration) {
	if uc.events == nil {
		return
	}
	event := domain.QueryEvent{
		ID:        uuid.NewString(),
		RequestID: domain.RequestIDFromContext(ctx),
		Query:     st.query,
		Answer:    resp.Answer,
		Language:  resp.Language,
		Intent:    resp.Intent,
		Latency:   elapsed,
		CacheHit:  resp.CacheHit,
		Degraded:  resp.Degraded,
		At:        uc.now().UTC(),
	}

	publishCtx := context.WithoutCancel(ctx)
	go func() {
		callCtx, cancel := context.WithTimeout(publishCtx, eventPublishTimeout)
		defer cancel()
		if err := uc.events.PublishQueryEvent(callCtx, event); err != nil {
			uc.logger.Warn("analytics_publish_failed", "event_id", event.ID, "error", err)
		}
	}()
}

func (uc *QueryUseCase) corpusVersion() uint64 {
	if uc.corpus == nil {
		return 0
	}
	return uc.corpus.Vocabulary().Version
}

func (st *queryState) hasContext() bool {
	switch st.plan.Intent {
	case domain.IntentAggregate:
		return st.retrieval.Aggregate != nil && st.retrieval.Aggregate.Count > 0
	case domain.IntentCompare:
		for _, g := range st.retrieval.Groups {
			if g.Aggregate.Count > 0 {
				return true
			}
		}
		return false
	default:
		return len(st.citations) > 0
	}
}

func (st *queryState) response() *domain.QueryResponse {
	sources := make([]domain.Source, 0, len(st.citations))
	for _, c := range st.citations {
		sources = append(sources, c.Source())
	}
	return &domain.QueryResponse{
		Answer:    st.answer,
		Sources:   sources,
		Language:  st.answerLang,
		Degraded:  st.degraded,
		Intent:    st.plan.Intent,
		Aggregate: st.retrieval.Aggregate,
		Groups:    st.retrieval.Groups,
	}
}

func (st *queryState) fixedReply(text string) *domain.QueryResponse {
	return &domain.QueryResponse{
		Answer:   text,
		Sources:  []domain.Source{},
		Language: st.lang,
		Degraded: st.degraded,
		Intent:   st.plan.Intent,
	}
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, time.Duration)                {}
func (noopObserver) ObserveQuery(domain.Intent, string, time.Duration) {}
func (noopObserver) ObserveCache(bool)                                 {}
func (noopObserver) ObserveCandidates(int)                             {}
