// Command worker runs the ingest pipeline: it claims IndexingJob rows
// and turns each into extracted, chunked, embedded Chunk rows. Grounded
// on cmd/hector/main.go's signal-handling shape; the poll loop itself is
// internal/job.Pipeline.Run.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/footnote/backend/internal/config"
	"github.com/footnote/backend/internal/job"
	"github.com/footnote/backend/internal/logging"
	"github.com/footnote/backend/internal/metrics"
	"github.com/footnote/backend/internal/tracing"
	"github.com/footnote/backend/internal/wiring"
)

// CLI holds the flag overrides this binary accepts on top of its
// otherwise fully environment-driven configuration, the same flag-
// override pattern cmd/server uses.
type CLI struct {
	Concurrency int    `help:"Max concurrent ingest jobs, overriding WORKER_CONCURRENCY." default:"0"`
	LogLevel    string `help:"Log level (debug, info, warn, error), overriding LOG_LEVEL."`
}

func main() {
	var cli CLI
	kong.Parse(&cli, kong.Description("footnote ingest worker"))

	if err := run(cli); err != nil {
		slog.Error("worker: fatal", "error", err)
		os.Exit(1)
	}
}

func run(cli CLI) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("worker: load config: %w", err)
	}
	if cli.Concurrency != 0 {
		cfg.WorkerConcurrency = cli.Concurrency
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel), os.Stderr, "json")
	log := slog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("worker: shutdown signal received")
		cancel()
	}()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:      cfg.TracingEnabled,
		Endpoint:     cfg.TracingOTLPEndpoint,
		ServiceName:  "footnote-worker",
		SamplingRate: cfg.TracingSamplingRate,
	})
	if err != nil {
		return fmt.Errorf("worker: init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	graph, err := wiring.Build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("worker: build collaborators: %w", err)
	}
	defer graph.Store.Close()

	m := metrics.New()
	go serveMetrics(log, m, cfg.HTTPPort+1)

	pipeline := job.New(job.Config{
		Store:                graph.Store,
		Drive:                graph.Drive,
		OCR:                  graph.OCR,
		Embedder:             graph.Embedder,
		Model:                graph.Model,
		Sessions:             graph.Sessions,
		ContextualChunkingOn: cfg.ContextualChunkingOn,
		Concurrency:          cfg.WorkerConcurrency,
		Logger:               log,
	})

	log.Info("worker: starting ingest pipeline", "concurrency", cfg.WorkerConcurrency)
	if err := pipeline.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker: pipeline run: %w", err)
	}
	log.Info("worker: stopped")
	return nil
}

// serveMetrics exposes /metrics on its own port so a worker process
// (which otherwise speaks no HTTP) can still be scraped. Errors here are
// logged, not fatal — a dead metrics endpoint shouldn't take down the
// ingest pipeline.
func serveMetrics(log *slog.Logger, m *metrics.Metrics, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	addr := fmt.Sprintf(":%d", port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("worker: metrics server stopped", "error", err)
	}
}
