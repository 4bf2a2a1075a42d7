package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/funding-rag-assistant/internal/bootstrap"
	"github.com/kirillkom/funding-rag-assistant/internal/config"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/corpus"
	"github.com/kirillkom/funding-rag-assistant/internal/observability/logging"
	"github.com/kirillkom/funding-rag-assistant/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg,
		bootstrap.WithLogger(logger),
		bootstrap.WithResilienceObserver(workerMetrics),
		bootstrap.WithIndexObserver(workerMetrics),
	)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	reindex := func(ctx context.Context) error {
		start := time.Now()
		n, err := app.IndexUC.IndexCorpus(ctx)
		if err != nil {
			return err
		}
		workerMetrics.MarkIndexed(time.Now())
		logger.Info("corpus_indexed", "chunks", n, "duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	if err := reindex(ctx); err != nil {
		log.Fatalf("index corpus: %v", err)
	}
	if !cfg.CorpusWatch {
		return
	}

	logger.Info("corpus_watch_started", "path", cfg.CorpusPath)
	watcher := corpus.NewWatcher(cfg.CorpusPath, cfg.WatchDebounce, reindex, logger)
	if err := watcher.Run(ctx); err != nil {
		log.Fatalf("corpus watch error: %v", err)
	}
}
