package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/contentgraph/internal/pipeline"
	"github.com/hanpama/contentgraph/internal/source"
)

// emptyExecutor answers every authoring document with no items. Transport
// behavior is under test here, not resolution semantics.
type emptyExecutor struct{}

func (emptyExecutor) ExecuteQuery(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	authoring, err := source.NewAuthoring(emptyExecutor{}, "master")
	require.NoError(t, err)
	svc, err := pipeline.New(nil, authoring, nil)
	require.NoError(t, err)
	h, err := New(svc, opts...)
	require.NoError(t, err)
	return h
}

func TestResolveExplicitIDs(t *testing.T) {
	h := newTestHandler(t)
	body := `{"ids": ["AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE"]}`
	req := httptest.NewRequest(http.MethodPost, "/resolve", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var sum pipeline.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	require.Equal(t, 1, sum.Counts.Total)
	require.True(t, sum.Records[0].IsCurrent)
}

func TestResolveWithoutContext(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/resolve", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.Error)
}

func TestResult(t *testing.T) {
	h := newTestHandler(t)

	// Before any cycle there is no result.
	req := httptest.NewRequest(http.MethodGet, "/result", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var res resultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Nil(t, res.Result)
	require.False(t, res.InFlight)

	// Run one explicit cycle, then the snapshot carries it.
	body := `{"ids": ["AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE"]}`
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/resolve", bytes.NewBufferString(body)))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/result", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotNil(t, res.Result)
	require.Equal(t, 1, res.Result.Counts.Total)
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHandler(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBodyTooLarge(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(8))
	body := `{"ids": ["AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE"]}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/resolve", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCORS(t *testing.T) {
	h := newTestHandler(t, WithCORS("https://app.example"))
	req := httptest.NewRequest(http.MethodOptions, "/resolve", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
