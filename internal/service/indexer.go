package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/ragdocs/internal/domain"
	"github.com/cloo-solutions/ragdocs/internal/telemetry"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

// DocumentLoader reads the source documents
type DocumentLoader interface {
	Load(ctx context.Context) ([]domain.Document, error)
}

// BatchEmbeddingClient embeds many texts, returning vectors in input order
type BatchEmbeddingClient interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	EmbeddingModel() string
}

// IndexStore replaces the whole persisted index
type IndexStore interface {
	Replace(ctx context.Context, entries []domain.StoreEntry) error
	Name() string
}

// StoreBackup preserves the current index before it is replaced. It returns
// where the copy went, or "" when there was nothing to keep.
type StoreBackup interface {
	Backup(ctx context.Context) (string, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IndexReport summarises one indexing run
type IndexReport struct {
	Documents int
	Chunks    int
	Store     string
	BackupTo  string
}

// IndexerService rebuilds the vector index from the source documents
type IndexerService struct {
	loader   DocumentLoader
	splitter *RecursiveSplitter
	embedder BatchEmbeddingClient
	store    IndexStore
	backup   StoreBackup
	onSplit  func(documents, chunks int)
	uuidGen  UUIDGenerator
}

func NewIndexerService(loader DocumentLoader, splitter *RecursiveSplitter, embedder BatchEmbeddingClient, store IndexStore) *IndexerService {
	return &IndexerService{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// WithBackup makes Run preserve the previous index before replacing it.
func (s *IndexerService) WithBackup(backup StoreBackup) *IndexerService {
	s.backup = backup
	return s
}

// OnSplit registers fn to be called as soon as the documents are split,
// before any embedding request is made.
func (s *IndexerService) OnSplit(fn func(documents, chunks int)) *IndexerService {
	s.onSplit = fn
	return s
}

// Run loads, splits and embeds everything before the store is touched, so a
// failure at any of those stages leaves the previous index in place.
func (s *IndexerService) Run(ctx context.Context) (*IndexReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "IndexerService.Run", telemetry.SpanAttributes{
		Store:     s.store.Name(),
		Operation: "index",
	})
	defer span.End()

	docs, err := s.loader.Load(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrNoDocuments
	}

	chunks := s.splitter.SplitDocuments(docs)
	span.SetData("documents", len(docs))
	span.SetData("chunks", len(chunks))
	telemetry.AddBreadcrumb(ctx, "index", fmt.Sprintf("split %d documents into %d chunks", len(docs), len(chunks)))
	if s.onSplit != nil {
		s.onSplit(len(docs), len(chunks))
	}

	entries, err := s.embedChunks(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	report := &IndexReport{
		Documents: len(docs),
		Chunks:    len(chunks),
		Store:     s.store.Name(),
	}

	if s.backup != nil {
		location, err := s.backup.Backup(ctx)
		if err != nil {
			span.SetError(err)
			return nil, fmt.Errorf("failed to back up vector store: %w", err)
		}
		if location != "" {
			log.Printf("index: previous store backed up to %s", location)
		}
		report.BackupTo = location
	}

	if err := s.store.Replace(ctx, entries); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to replace vector store: %w", err)
	}

	span.SetStatus(sentry.SpanStatusOK)
	return report, nil
}

func (s *IndexerService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.StoreEntry, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "IndexerService.embedChunks", telemetry.SpanAttributes{
		Operation: "embed",
	})
	defer span.End()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, domain.Wrap(domain.ErrCodeUpstream, "failed to generate chunk embeddings", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings))
	}

	model := s.embedder.EmbeddingModel()
	entries := make([]domain.StoreEntry, len(chunks))
	for i, c := range chunks {
		metadata := c.EntryMetadata()
		metadata[domain.MetadataEmbeddingModel] = model
		entries[i] = domain.StoreEntry{
			ID:        s.uuidGen.NewString(),
			Content:   c.Content,
			Embedding: embeddings[i],
			Metadata:  metadata,
		}
	}

	return entries, nil
}
