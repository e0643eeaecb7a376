package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloo-solutions/ragdocs/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence of embedded chunks in rag_chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ChunkMatch is a stored chunk with its cosine similarity to the query.
type ChunkMatch struct {
	ID         string
	Content    string
	Metadata   map[string]string
	Similarity float64
}

const insertChunkSQL = `
	INSERT INTO rag_chunks
		(id, collection, content, source, start_index, metadata, embedding_model, embedding, created_at)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// ReplaceChunks deletes every chunk of a collection and inserts entries in
// a single batch round trip.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, collection string, entries []domain.StoreEntry) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM rag_chunks WHERE collection = $1`, collection); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	createdAt := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, e := range entries {
		startIndex, _ := strconv.Atoi(e.Metadata[domain.MetadataStartIndex])
		metadata := e.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		batch.Queue(insertChunkSQL,
			e.ID,
			collection,
			e.Content,
			nullableString(metadata[domain.MetadataSource]),
			startIndex,
			metadata,
			metadata[domain.MetadataEmbeddingModel],
			pgvector.NewVector(e.Embedding),
			createdAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	for i := range entries {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert chunk %s: %w", entries[i].ID, err)
		}
	}
	return results.Close()
}

// SearchChunks returns the limit nearest chunks by cosine distance.
func (r *ChunkRepository) SearchChunks(ctx context.Context, collection string, embedding []float32, limit int) ([]ChunkMatch, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM rag_chunks
		WHERE collection = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(embedding), collection, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ChunkMatch
	for rows.Next() {
		var m ChunkMatch
		if err := rows.Scan(&m.ID, &m.Content, &m.Metadata, &m.Similarity); err != nil {
			return nil, err
		}
		results = append(results, m)
	}

	return results, rows.Err()
}

// CountChunks returns how many chunks a collection holds.
func (r *ChunkRepository) CountChunks(ctx context.Context, collection string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM rag_chunks WHERE collection = $1`, collection).Scan(&n)
	return n, err
}
