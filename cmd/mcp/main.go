package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	mcpadapter "github.com/kirillkom/funding-rag-assistant/internal/adapters/mcp"
	"github.com/kirillkom/funding-rag-assistant/internal/bootstrap"
	"github.com/kirillkom/funding-rag-assistant/internal/config"
	"github.com/kirillkom/funding-rag-assistant/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	// stdout carries the JSON-RPC stream, so logs go to stderr.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.WithLogger(logger))
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if app.InProcessIndex {
		if _, err := app.IndexUC.IndexCorpus(ctx); err != nil {
			log.Fatalf("index corpus: %v", err)
		}
	}
	go app.Terms.Run(ctx, cfg.TermCacheFlushInterval)

	server := mcpadapter.NewServer(cfg.MCPServerName, cfg.MCPServerVersion, app.QueryUC, app.StatsUC, cfg.CorpusCurrency).
		WithCompanies(app.StatsUC)
	logger.Info("mcp_serving_stdio", "name", cfg.MCPServerName)
	if err := server.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
