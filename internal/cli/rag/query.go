package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cloo-solutions/ragdocs/internal/cli"
	"github.com/cloo-solutions/ragdocs/internal/config"
	"github.com/cloo-solutions/ragdocs/internal/service"
	"github.com/spf13/cobra"
)

// QueryCmd returns the query command
func QueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <query_text>",
		Short: "Answer a question from the indexed documents",
		Long: `Embeds the question, retrieves the closest chunks from the vector store and
asks the chat model for an answer. Chunks are used as context only when the best
one scores above RELEVANCE_THRESHOLD.

Prints {"response": ..., "sources": [...]} as indented JSON.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{cli.OutputAnnotation: "json"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			return runQuery(ctx, cfg, args[0], cmd.OutOrStdout())
		},
	}
}

func runQuery(ctx context.Context, cfg *config.Config, question string, out io.Writer) error {
	shutdown := initTelemetry(cfg)
	defer shutdown()

	llm, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := service.NewQueryService(llm, store, llm, service.QueryConfig{
		TopK:               cfg.TopK,
		RelevanceThreshold: cfg.RelevanceThreshold,
		Debug:              cfg.Debug,
	})

	answer, err := svc.Answer(ctx, question)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(answer)
}
