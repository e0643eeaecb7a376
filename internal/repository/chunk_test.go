//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/ragdocs/internal/domain"
	"github.com/cloo-solutions/ragdocs/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkEntry(content, source string, emb []float32) domain.StoreEntry {
	return domain.StoreEntry{
		ID:        uuid.NewString(),
		Content:   content,
		Embedding: emb,
		Metadata: map[string]string{
			domain.MetadataSource:         source,
			domain.MetadataStartIndex:     "42",
			domain.MetadataEmbeddingModel: "test-model",
		},
	}
}

func TestChunkRepository(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	repo := NewChunkRepository(pool)

	run := func(name string, fn func(t *testing.T)) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, testutil.TruncateAll(ctx, pool))
			fn(t)
		})
	}

	run("ReplaceAndSearch", func(t *testing.T) {
		require.NoError(t, repo.ReplaceChunks(ctx, "documents", []domain.StoreEntry{
			chunkEntry("alpha", "a.md", []float32{1, 0, 0}),
			chunkEntry("beta", "b.md", []float32{0, 1, 0}),
			chunkEntry("gamma", "c.md", []float32{0.7071, 0.7071, 0}),
		}))
		require.NoError(t, repo.ReplaceChunks(ctx, "other", []domain.StoreEntry{
			chunkEntry("elsewhere", "x.md", []float32{1, 0, 0}),
		}))

		matches, err := repo.SearchChunks(ctx, "documents", []float32{1, 0, 0}, 2)

		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "alpha", matches[0].Content)
		assert.InDelta(t, 1.0, matches[0].Similarity, 1e-4)
		assert.Equal(t, "gamma", matches[1].Content)
		assert.Equal(t, "a.md", matches[0].Metadata[domain.MetadataSource])
		assert.Equal(t, "42", matches[0].Metadata[domain.MetadataStartIndex])

		n, err := repo.CountChunks(ctx, "documents")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	run("StartsEmpty", func(t *testing.T) {
		n, err := repo.CountChunks(ctx, "documents")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	run("ReplaceRemovesPrevious", func(t *testing.T) {
		require.NoError(t, repo.ReplaceChunks(ctx, "documents", []domain.StoreEntry{
			chunkEntry("old", "old.md", []float32{1, 0}),
			chunkEntry("older", "old.md", []float32{0, 1}),
		}))
		require.NoError(t, repo.ReplaceChunks(ctx, "documents", []domain.StoreEntry{
			chunkEntry("new", "new.md", []float32{1, 0}),
		}))

		matches, err := repo.SearchChunks(ctx, "documents", []float32{1, 0}, 3)

		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "new", matches[0].Content)
	})

	run("TxRollsBackOnError", func(t *testing.T) {
		require.NoError(t, repo.ReplaceChunks(ctx, "documents", []domain.StoreEntry{
			chunkEntry("kept", "a.md", []float32{1, 0}),
		}))

		errBoom := errors.New("boom")
		err := NewTxRunner(pool).WithTx(ctx, func(chunks *ChunkRepository) error {
			if err := chunks.ReplaceChunks(ctx, "documents", nil); err != nil {
				return err
			}
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)

		n, err := repo.CountChunks(ctx, "documents")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
