package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NoDSN(t *testing.T) {
	shutdown, err := Init(Config{})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestStartSpan_NestsUnderParent(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "IndexerService.Run", SpanAttributes{
		Store:     "chroma",
		Operation: "index",
	})
	require.NotNil(t, span)
	assert.NotNil(t, sentry.SpanFromContext(ctx))
	assert.Equal(t, "chroma", span.inner.Tags["store"])

	childCtx, child := StartSpan(ctx, "IndexerService.embedChunks", SpanAttributes{Operation: "embed"})
	assert.Equal(t, span.inner.TraceID, sentry.SpanFromContext(childCtx).TraceID)
	assert.Equal(t, span.inner.SpanID, child.inner.ParentSpanID)

	child.SetData("chunks", 3)
	child.SetError(errors.New("boom"))
	assert.Equal(t, sentry.SpanStatusInternalError, child.inner.Status)
	assert.Equal(t, 3, child.inner.Data["chunks"])

	span.SetStatus(sentry.SpanStatusOK)
	child.End()
	span.End()
}

func TestSpan_ZeroValueIsSafe(t *testing.T) {
	var span Span
	span.SetStatus(sentry.SpanStatusOK)
	span.SetData("k", "v")
	span.SetError(errors.New("ignored"))
	span.End()
}

func TestSampler(t *testing.T) {
	sample := sampler(0.25)

	probe := sentry.StartSpan(context.Background(), "http.server", sentry.WithTransactionName("GET /health"))
	defer probe.Finish()
	probe.Name = "GET /health"
	assert.Zero(t, sample(sentry.SamplingContext{Span: probe}))

	root := sentry.StartSpan(context.Background(), "http.server", sentry.WithTransactionName("POST /query"))
	defer root.Finish()
	root.Name = "POST /query"
	assert.Equal(t, 0.25, sample(sentry.SamplingContext{Span: root}))
}

func TestAddBreadcrumb_WithoutHubInContext(t *testing.T) {
	assert.NotPanics(t, func() {
		AddBreadcrumb(context.Background(), "index", "split 1 documents into 2 chunks")
	})
}
