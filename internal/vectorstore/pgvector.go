package vectorstore

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/ragdocs/internal/domain"
	"github.com/cloo-solutions/ragdocs/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgvectorStore keeps a collection in the rag_chunks table.
type PgvectorStore struct {
	chunks     *repository.ChunkRepository
	tx         *repository.TxRunner
	collection string
	model      modelGuard
}

func NewPgvectorStore(pool *pgxpool.Pool, collection, embeddingModel string) *PgvectorStore {
	if collection == "" {
		collection = "documents"
	}
	return &PgvectorStore{
		chunks:     repository.NewChunkRepository(pool),
		tx:         repository.NewTxRunner(pool),
		collection: collection,
		model:      modelGuard{model: embeddingModel},
	}
}

func (s *PgvectorStore) Name() string {
	return "postgres:" + s.collection
}

// Replace swaps the collection contents in one transaction, so readers see
// either the old index or the new one.
func (s *PgvectorStore) Replace(ctx context.Context, entries []domain.StoreEntry) error {
	err := s.tx.WithTx(ctx, func(chunks *repository.ChunkRepository) error {
		return chunks.ReplaceChunks(ctx, s.collection, entries)
	})
	if err != nil {
		return fmt.Errorf("failed to replace chunks: %w", err)
	}
	return nil
}

func (s *PgvectorStore) Search(ctx context.Context, embedding []float32, k int) ([]domain.QueryResult, error) {
	matches, err := s.chunks.SearchChunks(ctx, s.collection, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	results := make([]domain.QueryResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, domain.QueryResult{
			ID:       m.ID,
			Content:  m.Content,
			Metadata: m.Metadata,
			Score:    RelevanceScore(m.Similarity),
		})
	}

	s.model.check(results)
	return results, nil
}
