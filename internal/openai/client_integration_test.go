//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liveClient talks to the real API; OPENAI_BASE_URL may point it at any
// compatible provider.
func liveClient(t *testing.T) *Client {
	t.Helper()
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}
	return NewClientWithConfig(Config{
		APIKey:  apiKey,
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	})
}

func TestLive_EmbeddingsMatchQueryEmbedding(t *testing.T) {
	client := liveClient(t)
	ctx := context.Background()
	text := "Alice followed the White Rabbit down the hole."

	batch, err := client.GenerateEmbeddings(ctx, []string{text, "The sea was calm."})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Len(t, batch[0], DefaultEmbeddingDimensions)

	single, err := client.GenerateEmbedding(ctx, text)
	require.NoError(t, err)
	assert.Len(t, single, len(batch[0]))
}

func TestLive_Generate(t *testing.T) {
	client := liveClient(t)

	reply, err := client.Generate(context.Background(), "Reply with the single word: pong")

	require.NoError(t, err)
	assert.NotEmpty(t, reply)
}
