// Package rag holds the cobra commands that index documents, answer
// queries and serve the query pipeline over HTTP.
package rag

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/ragdocs/internal/config"
	"github.com/cloo-solutions/ragdocs/internal/database"
	"github.com/cloo-solutions/ragdocs/internal/domain"
	"github.com/cloo-solutions/ragdocs/internal/openai"
	"github.com/cloo-solutions/ragdocs/internal/service"
	"github.com/cloo-solutions/ragdocs/internal/storage"
	"github.com/cloo-solutions/ragdocs/internal/telemetry"
	"github.com/cloo-solutions/ragdocs/internal/vectorstore"
	goopenai "github.com/sashabaranov/go-openai"
)

// vectorStore is implemented by both backends.
type vectorStore interface {
	service.IndexStore
	service.SearchStore
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// initTelemetry starts Sentry when a DSN is configured. Tracing failures are
// logged and never stop the command.
func initTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}

func newLLMClient(cfg *config.Config) (*openai.Client, error) {
	if !cfg.HasOpenAI() {
		return nil, openai.ErrNoAPIKey
	}

	dimensions := cfg.EmbeddingDimensions
	if dimensions == 0 {
		dimensions = -1
	}

	return openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: dimensions,
		BatchSize:           cfg.EmbeddingBatchSize,
		ChatModel:           cfg.ChatModel,
	}), nil
}

// openStore returns the configured backend and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, migrate bool) (vectorStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPgvector:
		pool, err := database.NewPool(ctx, database.Config{
			URL:             cfg.DatabaseURL,
			ConnectAttempts: 5,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if migrate {
			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		return vectorstore.NewPgvectorStore(pool, cfg.Collection, cfg.EmbeddingModel), pool.Close, nil
	default:
		return vectorstore.NewDirectoryStore(vectorstore.DirectoryStoreConfig{
			Path:           cfg.StorePath,
			Collection:     cfg.Collection,
			Compress:       cfg.StoreCompress,
			EmbeddingModel: cfg.EmbeddingModel,
		}), func() {}, nil
	}
}

// newBackup picks how the previous index is preserved: an S3 snapshot when
// object storage is configured, otherwise a renamed copy of the directory.
func newBackup(ctx context.Context, cfg *config.Config, store vectorStore) (service.StoreBackup, error) {
	dir, ok := store.(*vectorstore.DirectoryStore)
	if !ok {
		return nil, domain.ErrBackupUnsupported
	}

	if !cfg.HasS3() {
		return dir, nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return storage.NewSnapshotBackup(dir, client, cfg.Collection), nil
}
