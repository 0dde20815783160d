// Package config loads an immutable configuration record from the
// environment at startup. Nothing under this package mutates a Config
// after New returns it; callers pass it by reference.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-wide, immutable settings record. Construct one
// with New at startup and thread it by reference; never copy individual
// fields back into the environment at runtime.
type Config struct {
	DatabaseURL string
	// RedisURL is accepted for interface completeness; the job queue in
	// this repo lives in the indexing_jobs table itself (see internal/job),
	// so nothing currently dials it.
	RedisURL string

	SecretKey          string
	SessionExpireHours int

	WorkerConcurrency int

	MaxRequestSizeBytes        int64
	MaxChatMessageLength       int
	MaxConversationTitleLength int

	DBPoolSize            int
	DBMaxOverflow         int
	DBPoolRecycle         time.Duration
	DBPoolTimeout         time.Duration
	DBStatementTimeoutMS  int
	ContextualChunkingOn  bool

	ClaudeModel     string
	ClaudeFastModel string

	LLMProvider      string
	EmbedderProvider string
	RerankerProvider string
	EmbeddingModel   string
	EmbeddingDim     int

	AnthropicAPIKey string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	CohereAPIKey    string
	MistralAPIKey   string

	DriveBaseURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleTokenURL     string

	PosthogEnabled bool
	PosthogAPIKey  string
	PosthogHost    string

	LogLevel string

	HTTPPort int

	TracingEnabled      bool
	TracingOTLPEndpoint string
	TracingSamplingRate float64
}

// New loads a Config from the process environment, after first loading
// any local .env / .env.local files. It returns an error if required
// settings are missing.
func New() (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		SecretKey:          os.Getenv("SECRET_KEY"),
		SessionExpireHours: envInt("SESSION_EXPIRE_HOURS", 24*14),

		WorkerConcurrency: envInt("WORKER_CONCURRENCY", 20),

		MaxRequestSizeBytes:        envInt64("MAX_REQUEST_SIZE_BYTES", 1<<20),
		MaxChatMessageLength:       envInt("MAX_CHAT_MESSAGE_LENGTH", 32000),
		MaxConversationTitleLength: envInt("MAX_CONVERSATION_TITLE_LENGTH", 255),

		DBPoolSize:           envInt("CELERY_DB_POOL_SIZE", 10),
		DBMaxOverflow:        envInt("CELERY_DB_MAX_OVERFLOW", 5),
		DBPoolRecycle:        time.Duration(envInt("CELERY_DB_POOL_RECYCLE", 1800)) * time.Second,
		DBPoolTimeout:        time.Duration(envInt("DB_POOL_TIMEOUT", 30)) * time.Second,
		DBStatementTimeoutMS: envInt("CELERY_DB_STATEMENT_TIMEOUT_MS", 30000),
		ContextualChunkingOn: envBool("CONTEXTUAL_CHUNKING_ENABLED", true),

		ClaudeModel:     envString("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		ClaudeFastModel: envString("CLAUDE_FAST_MODEL", "claude-3-5-haiku-20241022"),

		LLMProvider:      envString("LLM_PROVIDER", "anthropic"),
		EmbedderProvider: envString("EMBEDDER_PROVIDER", "openai"),
		RerankerProvider: envString("RERANKER_PROVIDER", "cohere"),
		EmbeddingModel:   envString("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:     envInt("EMBEDDING_DIM", 1536),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		CohereAPIKey:    os.Getenv("COHERE_API_KEY"),
		MistralAPIKey:   os.Getenv("MISTRAL_API_KEY"),

		DriveBaseURL: envString("DRIVE_BASE_URL", "https://www.googleapis.com/drive/v3"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleTokenURL:     envString("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),

		PosthogEnabled: envBool("POSTHOG_ENABLED", false),
		PosthogAPIKey:  os.Getenv("POSTHOG_API_KEY"),
		PosthogHost:    envString("POSTHOG_HOST", "https://app.posthog.com"),

		LogLevel: envString("LOG_LEVEL", "info"),

		HTTPPort: envInt("HTTP_PORT", 8080),

		TracingEnabled:      envBool("TRACING_ENABLED", false),
		TracingOTLPEndpoint: envString("TRACING_OTLP_ENDPOINT", "localhost:4317"),
		TracingSamplingRate: envFloat("TRACING_SAMPLING_RATE", 1.0),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("config: SECRET_KEY is required")
	}

	return cfg, nil
}

// GetProviderAPIKey returns the configured API key for a named LLM or
// embedding provider, or "" if unknown/unset.
func (c *Config) GetProviderAPIKey(providerType string) string {
	switch providerType {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	case "cohere":
		return c.CohereAPIKey
	case "mistral":
		return c.MistralAPIKey
	default:
		return ""
	}
}

// LoadEnvFiles loads .env.local then .env into the process environment,
// ignoring a missing file.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
