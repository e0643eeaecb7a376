package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cloo-solutions/ragdocs/internal/api"
	"github.com/cloo-solutions/ragdocs/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragdocs_queries_total",
			Help: "Answered queries by outcome",
		},
		[]string{"outcome"},
	)

	queryContextHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ragdocs_query_context_hits_total",
			Help: "Queries answered with retrieved context",
		},
	)

	queryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragdocs_query_duration_seconds",
			Help:    "End-to-end query pipeline latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

type QueryService interface {
	Answer(ctx context.Context, query string) (*domain.Answer, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Query string `json:"query"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		queriesTotal.WithLabelValues("invalid").Inc()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	answer, err := h.svc.Answer(r.Context(), req.Query)
	queryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		status := api.StatusFor(err)
		if status == http.StatusBadRequest {
			queriesTotal.WithLabelValues("invalid").Inc()
		} else {
			queriesTotal.WithLabelValues("error").Inc()
		}
		api.HandleError(w, err)
		return
	}

	queriesTotal.WithLabelValues("answered").Inc()
	if len(answer.Sources) > 0 {
		queryContextHits.Inc()
	}

	api.Success(w, http.StatusOK, answer)
}
