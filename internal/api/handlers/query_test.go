package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/ragdocs/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Answer(ctx context.Context, query string) (*domain.Answer, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Answer), args.Error(1)
}

func strPtr(s string) *string { return &s }

func postQuery(h *QueryHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Query(w, req)
	return w
}

func TestQueryHandler_Success(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	answer := domain.NewAnswer("Alice follows the rabbit.", []*string{strPtr("data/books/alice.md"), nil})
	mockSvc.On("Answer", mock.Anything, "who is alice?").Return(answer, nil)

	hitsBefore := testutil.ToFloat64(queryContextHits)
	w := postQuery(handler, `{"query":"who is alice?"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Response string    `json:"response"`
			Sources  []*string `json:"sources"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Alice follows the rabbit.", resp.Data.Response)
	require.Len(t, resp.Data.Sources, 2)
	assert.Equal(t, "data/books/alice.md", *resp.Data.Sources[0])
	assert.Nil(t, resp.Data.Sources[1])
	assert.Equal(t, 1.0, testutil.ToFloat64(queryContextHits)-hitsBefore)
	mockSvc.AssertExpectations(t)
}

func TestQueryHandler_NoContextReturnsEmptySources(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	mockSvc.On("Answer", mock.Anything, "what is 2+2?").Return(domain.NewAnswer("4", nil), nil)

	hitsBefore := testutil.ToFloat64(queryContextHits)
	w := postQuery(handler, `{"query":"what is 2+2?"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"response":"4","sources":[]}}`, w.Body.String())
	assert.Equal(t, 0.0, testutil.ToFloat64(queryContextHits)-hitsBefore)
}

func TestQueryHandler_InvalidBody(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	w := postQuery(handler, `not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything)
}

func TestQueryHandler_StreamedBodyOverLimit(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	body := `{"query":"` + strings.Repeat("a", 64) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(w, req.Body, 16)

	handler.Query(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "request body too large")
	mockSvc.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything)
}

func TestQueryHandler_EmptyQuery(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	mockSvc.On("Answer", mock.Anything, "").Return(nil, domain.ErrEmptyQuery)

	w := postQuery(handler, `{"query":""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "query text cannot be empty")
}

func TestQueryHandler_UpstreamFailure(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	upstream := domain.Wrap(domain.ErrCodeUpstream, "failed to generate answer", assert.AnError)
	mockSvc.On("Answer", mock.Anything, "q").Return(nil, upstream)

	errorsBefore := testutil.ToFloat64(queriesTotal.WithLabelValues("error"))
	w := postQuery(handler, `{"query":"q"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(queriesTotal.WithLabelValues("error"))-errorsBefore)
}
