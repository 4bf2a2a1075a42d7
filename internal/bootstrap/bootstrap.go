package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/config"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
	"github.com/kirillkom/funding-rag-assistant/internal/core/usecase"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/cache/memory"
	rediscache "github.com/kirillkom/funding-rag-assistant/internal/infrastructure/cache/redis"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/corpus"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/langdetect"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/llm/ollama"
	natsbus "github.com/kirillkom/funding-rag-assistant/internal/infrastructure/messaging/nats"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/termcache"
	vectormemory "github.com/kirillkom/funding-rag-assistant/internal/infrastructure/vector/memory"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Corpus *corpus.Store
	Source *corpus.FileSource
	Terms  *termcache.Cache
	Cache  ports.ResponseCache
	Bus    *natsbus.Bus

	QueryUC *usecase.QueryUseCase
	StatsUC *usecase.StatsUseCase
	IndexUC *usecase.IndexCorpusUseCase

	// InProcessIndex is set when vectors live in this process and must be
	// built before serving queries.
	InProcessIndex bool

	closeFns []func()
}

type options struct {
	logger             *slog.Logger
	resilienceObserver resilience.Observer
	pipelineObserver   ports.PipelineObserver
	indexObserver      ports.IndexObserver
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithResilienceObserver(observer resilience.Observer) Option {
	return func(o *options) { o.resilienceObserver = observer }
}

func WithPipelineObserver(observer ports.PipelineObserver) Option {
	return func(o *options) { o.pipelineObserver = observer }
}

func WithIndexObserver(observer ports.IndexObserver) Option {
	return func(o *options) { o.indexObserver = observer }
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	app := &App{Config: cfg, Logger: o.logger}

	source := corpus.NewFileSource(cfg.CorpusPath, cfg.CorpusCurrency)
	store := corpus.NewStore(source)
	n, err := store.Reload(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	o.logger.Info("corpus_loaded", "path", cfg.CorpusPath, "chunks", n)
	app.Source, app.Corpus = source, store

	terms, err := app.openTermCache(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Terms = terms

	executor := func(maxAttempts int, attemptTimeout time.Duration) *resilience.Executor {
		rc := resilience.DefaultConfig().WithMaxAttempts(maxAttempts).WithAttemptTimeout(attemptTimeout)
		rc.RetryInitialBackoff = cfg.ResilienceInitialBackoff
		rc.BreakerEnabled = cfg.ResilienceBreakerEnabled
		e := resilience.NewExecutor(rc)
		if o.resilienceObserver != nil {
			e = e.WithObserver(o.resilienceObserver)
		}
		return e
	}

	llm := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		HTTPTimeout:      cfg.LLMTotalTimeout,
		Executor:         executor(cfg.ResilienceMaxAttempts, cfg.TranslateTimeout),
		GenerateExecutor: executor(cfg.LLMRetryAttempts, cfg.LLMTimeout),
		EmbedExecutor:    executor(cfg.ResilienceMaxAttempts, cfg.EmbedTimeout),
		EmbedPool:        resilience.NewLimiter("embed", cfg.EmbedConcurrency, cfg.EmbedRPS, cfg.EmbedConcurrency),
		GeneratePool:     resilience.NewLimiter("generate", cfg.LLMConcurrency, cfg.LLMRPS, cfg.LLMConcurrency),
	})
	embedder := ollama.NewEmbedder(llm)

	var (
		index  ports.VectorIndex
		writer ports.VectorIndexWriter
	)
	switch cfg.VectorBackend {
	case "memory":
		mem := vectormemory.New()
		index, writer = mem, mem
		app.InProcessIndex = true
	case "qdrant":
		q := qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollection, qdrant.Options{
			HTTPTimeout: cfg.VectorSearchTimeout,
			Executor:    executor(cfg.ResilienceMaxAttempts, 0),
		})
		index, writer = q, q
	default:
		app.Close()
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend)
	}

	responseCache, err := app.openResponseCache(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Cache = responseCache

	var refresh ports.RefreshBus
	if cfg.NATSURL != "" {
		bus, err := natsbus.NewWithOptions(cfg.NATSURL, natsbus.Options{
			RefreshSubject:     cfg.NATSRefreshSubject,
			AnalyticsSubject:   cfg.NATSAnalyticsSubject,
			ResilienceExecutor: executor(cfg.ResilienceMaxAttempts, 0),
			Logger:             o.logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		app.Bus = bus
		refresh = bus
		app.closeFns = append(app.closeFns, bus.Close)
	}

	languages := usecase.NewLanguageService(langdetect.New(cfg.DefaultLanguage), cfg.DefaultLanguage, cfg.LangMinConfidence)
	translation := usecase.NewTranslationService(terms, ollama.NewTranslator(llm), cfg.TranslateTimeout)
	currentYear := cfg.PlannerCurrentYear
	if currentYear <= 0 {
		currentYear = time.Now().Year()
	}
	planner := usecase.NewPlanner(store, terms, usecase.PlannerConfig{
		CurrentYear: currentYear,
		MaxLimit:    cfg.RAGMaxRankedLimit,
	})
	retriever := usecase.NewRetriever(index, store, usecase.RetrieverConfig{
		SearchTimeout:      cfg.VectorSearchTimeout,
		MinSimilarity:      cfg.RAGMinSimilarity,
		DefaultK:           cfg.RAGTopK,
		RankedDefaultLimit: cfg.RAGRankedLimit,
	})
	reranker := usecase.NewReranker(usecase.RerankWeights{
		Similarity: cfg.RerankSimilarity,
		Filter:     cfg.RerankFilter,
		Recency:    cfg.RerankRecency,
	}, cfg.RAGRerankTopN)
	assembler := usecase.NewAssembler(usecase.AssemblerConfig{
		MaxTokens:        cfg.ContextMaxTokens,
		TruncateMinRatio: cfg.ContextTruncateMinR,
		Currency:         cfg.CorpusCurrency,
	})
	generation := usecase.NewGenerationService(ollama.NewGenerator(llm), cfg.LLMTotalTimeout, cfg.LLMMaxTokens)

	queryUC := usecase.NewQueryUseCase(
		languages, translation, planner, embedder, retriever, reranker, assembler, generation, store,
		usecase.PipelineConfig{
			RetrievalK:    cfg.RAGTopK,
			CacheTTL:      cfg.CacheTTL,
			Currency:      cfg.CorpusCurrency,
			MaxQueryRunes: cfg.MaxQueryRunes,
		},
	).WithObserver(o.pipelineObserver).WithLogger(o.logger)
	if responseCache != nil {
		queryUC = queryUC.WithCache(responseCache)
	}
	if app.Bus != nil {
		queryUC = queryUC.WithEvents(app.Bus)
	}
	app.QueryUC = queryUC
	app.StatsUC = usecase.NewStatsUseCase(store)

	indexUC := usecase.NewIndexCorpusUseCase(source, embedder, writer, refresh, usecase.IndexConfig{
		BatchSize:   cfg.IndexBatchSize,
		Concurrency: cfg.EmbedConcurrency,
	})
	if o.indexObserver != nil {
		indexUC = indexUC.WithObserver(o.indexObserver)
	}
	app.IndexUC = indexUC

	return app, nil
}

func (a *App) openTermCache(ctx context.Context) (*termcache.Cache, error) {
	cfg := a.Config
	var store ports.TermStore
	switch cfg.TermCacheBackend {
	case "memory":
	case "file":
		store = termcache.NewFileStore(cfg.TermCachePath)
	case "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { _ = db.Close() })
		repo := postgres.NewTermRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		store = repo
	case "sqlite":
		repo, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closeFns = append(a.closeFns, func() { _ = repo.Close() })
		store = repo
	default:
		return nil, fmt.Errorf("unknown TERM_CACHE_BACKEND %q", cfg.TermCacheBackend)
	}

	terms, err := termcache.New(store)
	if err != nil {
		return nil, fmt.Errorf("init term cache: %w", err)
	}
	if n, err := terms.Load(ctx); err != nil {
		a.Logger.Warn("term_cache_load_failed", "backend", cfg.TermCacheBackend, "error", err)
	} else {
		a.Logger.Info("term_cache_loaded", "backend", cfg.TermCacheBackend, "entries", n)
	}
	return terms, nil
}

func (a *App) openResponseCache(ctx context.Context) (ports.ResponseCache, error) {
	cfg := a.Config
	switch cfg.CacheBackend {
	case "none":
		return nil, nil
	case "memory":
		return memory.New(cfg.CacheMaxEntries), nil
	case "redis":
		c := rediscache.New(rediscache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Logger:   a.Logger,
		})
		a.closeFns = append(a.closeFns, func() { _ = c.Close() })
		if err := c.Ping(ctx); err != nil {
			a.Logger.Warn("response_cache_unreachable", "addr", cfg.RedisAddr, "error", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
}

// Close flushes dirty term translations and releases connections in reverse
// order of acquisition.
func (a *App) Close() {
	if a.Terms != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := a.Terms.Flush(ctx); err != nil {
			a.Logger.Warn("term_cache_flush_failed", "error", err)
		}
		cancel()
	}
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
