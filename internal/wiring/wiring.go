// Package wiring builds the collaborator graph both cmd/server and
// cmd/worker need: store, drive, OCR, embedder, reranker, LLM, session
// resolver, retriever, and (server-only) the agent. Grounded on
// cmd/hector/main.go's ServeCmd.Run, which builds this same kind of
// single-process dependency graph inline; split out here because two
// binaries need the identical graph rather than one.
package wiring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/footnote/backend/internal/agent"
	"github.com/footnote/backend/internal/auth"
	"github.com/footnote/backend/internal/config"
	"github.com/footnote/backend/internal/crypto"
	"github.com/footnote/backend/internal/drive"
	"github.com/footnote/backend/internal/embed"
	"github.com/footnote/backend/internal/extract"
	"github.com/footnote/backend/internal/llm"
	"github.com/footnote/backend/internal/rerank"
	"github.com/footnote/backend/internal/retrieve"
	"github.com/footnote/backend/internal/store"
	"github.com/footnote/backend/internal/sync"
)

// Graph holds every long-lived collaborator a process might need. Both
// cmd/server and cmd/worker build one from the same Config and use the
// subset they need.
type Graph struct {
	Store     *store.Store
	Drive     drive.SourceDrive
	OCR       extract.OCR
	Embedder  embed.Embedder
	Reranker  rerank.Reranker
	Model     llm.LLM
	Vision    extract.VisionDescriber
	Cipher    *crypto.TokenCipher
	Sessions  *auth.SessionResolver
	Retriever *retrieve.Retriever
	Sync      *sync.Synchronizer
}

// Build connects to Postgres and constructs every provider adapter
// named in cfg. Callers are responsible for calling g.Store.Close when
// done.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Graph, error) {
	dsn := cfg.DatabaseURL
	if opt := store.StatementTimeoutOption(cfg.DBStatementTimeoutMS); opt != "" {
		dsn = dsn + " " + opt
	}
	st, err := store.Open(ctx, dsn, cfg.DBPoolSize, cfg.DBPoolSize+cfg.DBMaxOverflow)
	if err != nil {
		return nil, fmt.Errorf("wiring: open store: %w", err)
	}

	cipher, err := crypto.New(cfg.SecretKey)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("wiring: build cipher: %w", err)
	}

	model, vision, err := buildLLM(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	reranker := buildReranker(cfg)

	sourceDrive := drive.NewGoogleDrive()
	refresher := auth.NewRefresher(cfg.GoogleTokenURL, cfg.GoogleClientID, cfg.GoogleClientSecret)
	sessions := auth.NewSessionResolver(st, cipher, refresher)
	retriever := retrieve.New(st, embedder, reranker)
	synchronizer := sync.New(st, sourceDrive)

	var ocr extract.OCR
	if cfg.MistralAPIKey != "" {
		ocr = extract.NewMistralOCR(cfg.MistralAPIKey)
	}

	return &Graph{
		Store:     st,
		Drive:     sourceDrive,
		OCR:       ocr,
		Embedder:  embedder,
		Reranker:  reranker,
		Model:     model,
		Vision:    vision,
		Cipher:    cipher,
		Sessions:  sessions,
		Retriever: retriever,
		Sync:      synchronizer,
	}, nil
}

// BuildAgent wires an Agent over g, for cmd/server's chat endpoint only
// — cmd/worker never needs the agent loop.
func BuildAgent(g *Graph, log *slog.Logger) *agent.Agent {
	tools := agent.NewTools(g.Store, g.Retriever, g.Drive, g.OCR, g.Vision, g.Sessions)
	return agent.New(agent.Config{
		Store:     g.Store,
		Retriever: g.Retriever,
		Tools:     tools,
		Model:     g.Model,
		Logger:    log,
	})
}

func buildLLM(cfg *config.Config) (llm.LLM, extract.VisionDescriber, error) {
	switch cfg.LLMProvider {
	case "gemini":
		m, err := llm.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.ClaudeModel)
		if err != nil {
			return nil, nil, fmt.Errorf("wiring: build gemini client: %w", err)
		}
		return m, m, nil
	default:
		m := llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.ClaudeModel)
		return m, m, nil
	}
}

func buildEmbedder(cfg *config.Config) (embed.Embedder, error) {
	switch cfg.EmbedderProvider {
	case "cohere":
		return embed.NewCohere(cfg.CohereAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim), nil
	case "openai":
		return embed.NewOpenAI(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim), nil
	default:
		return nil, fmt.Errorf("wiring: unknown embedder provider %q", cfg.EmbedderProvider)
	}
}

func buildReranker(cfg *config.Config) rerank.Reranker {
	if cfg.RerankerProvider == "" || cfg.CohereAPIKey == "" {
		return nil
	}
	return rerank.NewCohere(cfg.CohereAPIKey, "rerank-english-v3.0")
}
