package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_EntryMetadata(t *testing.T) {
	c := Chunk{
		Content:    "some text",
		StartIndex: 42,
		Metadata:   map[string]string{MetadataSource: "data/books/alice.md"},
	}

	m := c.EntryMetadata()

	assert.Equal(t, "data/books/alice.md", m[MetadataSource])
	assert.Equal(t, "42", m[MetadataStartIndex])
	_, mutated := c.Metadata[MetadataStartIndex]
	assert.False(t, mutated)
}

func TestQueryResult_Source(t *testing.T) {
	r := QueryResult{Metadata: map[string]string{MetadataSource: "a.md"}}
	src, ok := r.Source()
	assert.True(t, ok)
	assert.Equal(t, "a.md", src)

	_, ok = QueryResult{}.Source()
	assert.False(t, ok)
}

func TestAnswer_JSON_EmptySources(t *testing.T) {
	answer := NewAnswer("hello", nil)

	data, err := json.Marshal(answer)
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"hello","sources":[]}`, string(data))
}

func TestAnswer_JSON_NullSource(t *testing.T) {
	src := "data/books/alice.md"
	answer := NewAnswer("hi", []*string{&src, nil})

	data, err := json.Marshal(answer)
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"hi","sources":["data/books/alice.md",null]}`, string(data))
}

func TestDomainError(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrCodeUpstream, "failed to embed query", cause)

	assert.Equal(t, "[UPSTREAM_ERROR] failed to embed query: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[VALIDATION_ERROR] query text cannot be empty", ErrEmptyQuery.Error())

	wrapped := fmt.Errorf("index: %w", ErrNoDocuments)
	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrCodeValidation, domainErr.Code)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(ErrCodeUpstream, "unused", nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeUpstream, CodeOf(fmt.Errorf("run: %w", Wrap(ErrCodeUpstream, "embed", errors.New("x")))))
	assert.Equal(t, ErrCodeNotFound, CodeOf(ErrStoreNotFound))
	assert.Equal(t, ErrCodeInternalError, CodeOf(errors.New("plain")))
}
