package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/ragdocs/internal/cli"
	"github.com/cloo-solutions/ragdocs/internal/cli/rag"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ragd",
		Short: "ragdocs daemon and CLI",
		Long: `ragd answers questions about a directory of documents.

Environment variables:
  OPENAI_API_KEY   API key for embeddings and chat (required)
  STORE_BACKEND    chromem (default) or pgvector
  DATABASE_URL     postgres connection string for the pgvector backend
  STORE_REFRESH_INTERVAL  how often serve reloads a rebuilt index (default 30s)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(rag.ServeCmd())
	rootCmd.AddCommand(rag.IndexCmd())
	rootCmd.AddCommand(rag.QueryCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
