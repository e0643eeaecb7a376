package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendChromem  = "chromem"
	BackendPgvector = "pgvector"
)

// Config is read from RAGDOCS_-prefixed environment variables. Every key
// also falls back to its unprefixed name (OPENAI_API_KEY, SENTRY_DSN, ...).
type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DataPath string `envconfig:"DATA_PATH" default:"data/books"`
	DataGlob string `envconfig:"DATA_GLOB" default:"*.md"`

	StoreBackend  string `envconfig:"STORE_BACKEND" default:"chromem"`
	StorePath     string `envconfig:"STORE_PATH" default:"chroma"`
	StoreCompress bool   `envconfig:"STORE_COMPRESS" default:"false"`
	Collection    string `envconfig:"COLLECTION" default:"documents"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`

	// StoreRefreshInterval is how often ragd checks whether the on-disk
	// store was rebuilt. Zero disables the check.
	StoreRefreshInterval time.Duration `envconfig:"STORE_REFRESH_INTERVAL" default:"30s"`

	ChunkSize          int     `envconfig:"CHUNK_SIZE" default:"300"`
	ChunkOverlap       int     `envconfig:"CHUNK_OVERLAP" default:"100"`
	TopK               int     `envconfig:"TOP_K" default:"3"`
	RelevanceThreshold float64 `envconfig:"RELEVANCE_THRESHOLD" default:"0.7"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbeddingBatchSize  int    `envconfig:"EMBEDDING_BATCH_SIZE" default:"100"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"ragdocs-snapshots"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RAGDOCS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the combinations envconfig cannot express.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendChromem:
	case BackendPgvector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("invalid config: DATABASE_URL is required for the %s backend", BackendPgvector)
		}
	default:
		return fmt.Errorf("invalid config: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid config: CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid config: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if c.StoreRefreshInterval < 0 {
		return fmt.Errorf("invalid config: STORE_REFRESH_INTERVAL cannot be negative")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("invalid config: TOP_K must be positive")
	}
	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 1 {
		return fmt.Errorf("invalid config: RELEVANCE_THRESHOLD must be in [0, 1]")
	}

	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
