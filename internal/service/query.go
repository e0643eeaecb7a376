package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/ragdocs/internal/domain"
	"github.com/cloo-solutions/ragdocs/internal/telemetry"
	"github.com/getsentry/sentry-go"
)

// EmbeddingClient embeds a single query string
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SearchStore returns the k entries nearest to an embedding, best first
type SearchStore interface {
	Search(ctx context.Context, embedding []float32, k int) ([]domain.QueryResult, error)
}

// Generator produces a completion for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// QueryConfig controls retrieval and thresholding
type QueryConfig struct {
	TopK               int
	RelevanceThreshold float64
	Debug              bool
}

// DefaultQueryConfig retrieves three chunks and requires the best to score above 0.7
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{TopK: 3, RelevanceThreshold: 0.7}
}

// QueryService answers questions from retrieved context
type QueryService struct {
	embedder  EmbeddingClient
	store     SearchStore
	generator Generator
	cfg       QueryConfig
}

func NewQueryService(embedder EmbeddingClient, store SearchStore, generator Generator, cfg QueryConfig) *QueryService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultQueryConfig().TopK
	}
	return &QueryService{
		embedder:  embedder,
		store:     store,
		generator: generator,
		cfg:       cfg,
	}
}

// Answer embeds the question, retrieves context and calls the model once.
// When nothing scores above the threshold the prompt carries a placeholder
// and the answer lists no sources.
func (s *QueryService) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Answer", telemetry.SpanAttributes{
		Operation: "query",
	})
	defer span.End()

	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuery
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, question)
	if err != nil {
		span.SetError(err)
		return nil, domain.Wrap(domain.ErrCodeUpstream, "failed to embed query", err)
	}

	results, err := s.store.Search(ctx, embedding, s.cfg.TopK)
	if err != nil {
		span.SetError(err)
		return nil, domain.Wrap(domain.ErrCodeInternalError, "failed to search vector store", err)
	}

	if s.cfg.Debug {
		for i, r := range results {
			src, _ := r.Source()
			log.Printf("query: result %d score=%.4f source=%s", i, r.Score, src)
		}
	}

	contextText, sources := s.selectContext(results)
	span.SetData("retrieved", len(results))
	span.SetData("context_chunks", len(sources))
	telemetry.AddBreadcrumb(ctx, "query", fmt.Sprintf("%d of %d retrieved chunks used as context", len(sources), len(results)))

	text, err := s.generator.Generate(ctx, BuildPrompt(contextText, question))
	if err != nil {
		span.SetError(err)
		return nil, domain.Wrap(domain.ErrCodeUpstream, "failed to generate answer", err)
	}

	span.SetStatus(sentry.SpanStatusOK)
	return domain.NewAnswer(text, sources), nil
}

// selectContext applies the relevance threshold. Only the best score is
// compared; once it passes, every retrieved chunk is used.
func (s *QueryService) selectContext(results []domain.QueryResult) (string, []*string) {
	if len(results) == 0 || results[0].Score <= s.cfg.RelevanceThreshold {
		return NoContextPlaceholder, []*string{}
	}

	texts := make([]string, len(results))
	sources := make([]*string, len(results))
	for i, r := range results {
		texts[i] = r.Content
		if src, ok := r.Source(); ok {
			sources[i] = &src
		}
	}

	return strings.Join(texts, ContextDelimiter), sources
}
