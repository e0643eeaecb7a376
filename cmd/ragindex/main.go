package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/ragdocs/internal/cli"
	"github.com/cloo-solutions/ragdocs/internal/cli/rag"
)

func main() {
	rootCmd := rag.IndexCmd()
	rootCmd.Use = "ragindex"
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	cli.AddHelpJSONFlag(rootCmd)
	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
