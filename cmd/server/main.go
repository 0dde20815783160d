// Command server runs the HTTP API: folder management, conversation
// history, and the chat SSE endpoint. Grounded on cmd/hector/main.go's
// ServeCmd.Run signal-handling and single-process wiring shape, adapted
// from the A2A agent server to this repo's REST + SSE surface.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/footnote/backend/internal/config"
	"github.com/footnote/backend/internal/httpapi"
	"github.com/footnote/backend/internal/logging"
	"github.com/footnote/backend/internal/metrics"
	"github.com/footnote/backend/internal/tracing"
	"github.com/footnote/backend/internal/wiring"
)

// CLI holds the flag overrides this binary accepts on top of its
// otherwise fully environment-driven configuration. Grounded on
// cmd/hector/main.go's top-level CLI struct (Config/LogLevel/LogFormat
// flags alongside env/file-driven settings), trimmed to the two knobs
// an operator actually needs to override at the command line rather
// than a subcommand tree.
type CLI struct {
	Port     int    `help:"HTTP port to listen on, overriding HTTP_PORT." default:"0"`
	LogLevel string `help:"Log level (debug, info, warn, error), overriding LOG_LEVEL."`
}

func main() {
	var cli CLI
	kong.Parse(&cli, kong.Description("footnote HTTP API server"))

	if err := run(cli); err != nil {
		slog.Error("server: fatal", "error", err)
		os.Exit(1)
	}
}

func run(cli CLI) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("server: load config: %w", err)
	}
	if cli.Port != 0 {
		cfg.HTTPPort = cli.Port
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
		log.Info("server: shutdown signal received")
		cancel()
	}()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:      cfg.TracingEnabled,
		Endpoint:     cfg.TracingOTLPEndpoint,
		ServiceName:  "footnote-server",
		SamplingRate: cfg.TracingSamplingRate,
	})
	if err != nil {
		return fmt.Errorf("server: init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	graph, err := wiring.Build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("server: build collaborators: %w", err)
	}
	defer graph.Store.Close()

	m := metrics.New()
	chatAgent := wiring.BuildAgent(graph, log)

	api := httpapi.New(httpapi.Config{
		Store:                graph.Store,
		Sync:                 graph.Sync,
		Agent:                chatAgent,
		Sessions:             graph.Sessions,
		Metrics:              m,
		Logger:               log,
		MaxChatMessageLength: cfg.MaxChatMessageLength,
		MaxTitleLength:       cfg.MaxConversationTitleLength,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           http.MaxBytesHandler(api.Router(), cfg.MaxRequestSizeBytes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server: listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: listen: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: graceful shutdown: %w", err)
	}
	log.Info("server: stopped")
	return nil
}
