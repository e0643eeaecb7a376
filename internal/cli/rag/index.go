package rag

import (
	"context"
	"fmt"
	"io"

	"github.com/cloo-solutions/ragdocs/internal/config"
	"github.com/cloo-solutions/ragdocs/internal/domain"
	"github.com/cloo-solutions/ragdocs/internal/loader"
	"github.com/cloo-solutions/ragdocs/internal/service"
	"github.com/spf13/cobra"
)

// IndexCmd returns the index command
func IndexCmd() *cobra.Command {
	var backup bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the vector index from the document directory",
		Long: `Loads every document matching DATA_GLOB in DATA_PATH, splits it into
overlapping chunks, embeds the chunks and replaces the vector store with them.

The previous index is deleted. Pass --backup to keep a copy first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			return runIndex(ctx, cfg, backup, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&backup, "backup", false, "Back up the existing index before rebuilding it")

	return cmd
}

func runIndex(ctx context.Context, cfg *config.Config, backup bool, out io.Writer) error {
	if backup && cfg.StoreBackend == config.BackendPgvector {
		return domain.ErrBackupUnsupported
	}

	shutdown := initTelemetry(cfg)
	defer shutdown()

	splitter, err := service.NewRecursiveSplitter(service.ChunkConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	})
	if err != nil {
		return err
	}

	llm, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer closeStore()

	indexer := service.NewIndexerService(loader.NewDirectoryLoader(cfg.DataPath, cfg.DataGlob), splitter, llm, store).
		OnSplit(func(documents, chunks int) {
			fmt.Fprintf(out, "Split %d documents into %d chunks.\n", documents, chunks)
		})
	if backup {
		b, err := newBackup(ctx, cfg, store)
		if err != nil {
			return err
		}
		indexer.WithBackup(b)
	}

	report, err := indexer.Run(ctx)
	if err != nil {
		return err
	}

	if report.BackupTo != "" {
		fmt.Fprintf(out, "Backed up previous index to %s.\n", report.BackupTo)
	}
	fmt.Fprintf(out, "Saved %d chunks to %s.\n", report.Chunks, report.Store)
	return nil
}
