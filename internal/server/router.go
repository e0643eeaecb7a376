// Package server assembles the HTTP surface of ragd.
package server

import (
	"net/http"

	"github.com/cloo-solutions/ragdocs/internal/api"
	"github.com/cloo-solutions/ragdocs/internal/api/handlers"
	"github.com/cloo-solutions/ragdocs/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodyBytes caps POST /query bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

type RouterConfig struct {
	QueryHandler *handlers.QueryHandler
	MaxBodyBytes int64
}

// NewRouter wires the middleware chain outermost first: request ID, tracing,
// access log, metrics, then the body limit closest to the handlers.
func NewRouter(cfg RouterConfig) http.Handler {
	limit := cfg.MaxBodyBytes
	if limit == 0 {
		limit = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.SentryMiddleware,
		middleware.AccessLog,
		middleware.Metrics,
		middleware.MaxBodyBytes(limit),
	)

	r.Get("/health", health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/query", cfg.QueryHandler.Query)

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}
