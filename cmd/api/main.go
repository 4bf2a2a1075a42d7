package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/funding-rag-assistant/internal/adapters/http"
	"github.com/kirillkom/funding-rag-assistant/internal/bootstrap"
	"github.com/kirillkom/funding-rag-assistant/internal/config"
	"github.com/kirillkom/funding-rag-assistant/internal/observability/logging"
	"github.com/kirillkom/funding-rag-assistant/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg,
		bootstrap.WithLogger(logger),
		bootstrap.WithResilienceObserver(httpMetrics),
		bootstrap.WithPipelineObserver(httpMetrics),
	)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if app.InProcessIndex {
		n, err := app.IndexUC.IndexCorpus(ctx)
		if err != nil {
			log.Fatalf("index corpus: %v", err)
		}
		logger.Info("corpus_indexed", "chunks", n, "backend", cfg.VectorBackend)
	}

	go app.Terms.Run(ctx, cfg.TermCacheFlushInterval)
	if app.Bus != nil {
		go subscribeRefresh(ctx, app, httpMetrics, logger)
	}

	router := httpadapter.NewRouter(cfg, app.QueryUC, app.Cache, httpMetrics).
		WithCompanies(app.StatsUC).
		Handler()
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.LLMTotalTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		log.Fatalf("api listen error: %v", err)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		logger.Info("api_listening", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}

// subscribeRefresh reloads the corpus snapshot and drops cached answers
// whenever the worker announces a new index.
func subscribeRefresh(ctx context.Context, app *bootstrap.App, httpMetrics *metrics.HTTPServerMetrics, logger *slog.Logger) {
	err := app.Bus.SubscribeCorpusRefreshed(ctx, func(handlerCtx context.Context, version string) error {
		lag := time.Duration(-1)
		if at, err := time.Parse(time.RFC3339Nano, version); err == nil {
			lag = time.Since(at)
		}

		n, err := app.Corpus.Reload(handlerCtx)
		if err == nil && app.Cache != nil {
			err = app.Cache.InvalidateAll(handlerCtx)
		}
		httpMetrics.ObserveCorpusRefresh(lag, err)
		if err != nil {
			logger.Error("corpus_refresh_failed", "version", version, "error", err)
			return err
		}
		logger.Info("corpus_refreshed", "version", version, "chunks", n)
		return nil
	})
	if err != nil {
		logger.Error("corpus_refresh_subscription_failed", "error", err)
	}
}
