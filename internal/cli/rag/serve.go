package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/ragdocs/internal/api/handlers"
	"github.com/cloo-solutions/ragdocs/internal/config"
	"github.com/cloo-solutions/ragdocs/internal/jobs"
	"github.com/cloo-solutions/ragdocs/internal/server"
	"github.com/cloo-solutions/ragdocs/internal/service"
	"github.com/cloo-solutions/ragdocs/internal/vectorstore"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the query API server",
		Long:  "Serve POST /query, /health and /metrics on the specified port",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}

	llm, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	store, closeStore, err := openStore(ctx, cfg, !noMigrate)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Printf("serving from vector store %s", store.Name())

	// A separate ragindex run may rebuild the directory store while we serve
	var refresher *jobs.Worker
	if dir, ok := store.(*vectorstore.DirectoryStore); ok && cfg.StoreRefreshInterval > 0 {
		refresher = jobs.NewWorker(jobs.NewStoreRefreshTask(dir), cfg.StoreRefreshInterval)
		go refresher.Start(ctx)
	}

	querySvc := service.NewQueryService(llm, store, llm, service.QueryConfig{
		TopK:               cfg.TopK,
		RelevanceThreshold: cfg.RelevanceThreshold,
		Debug:              cfg.Debug,
	})

	router := server.NewRouter(server.RouterConfig{
		QueryHandler: handlers.NewQueryHandler(querySvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if refresher != nil {
		refresher.Stop()
	}

	log.Println("server exited")
	return nil
}
