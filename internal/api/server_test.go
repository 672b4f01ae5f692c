package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mwhitten/stagehand/internal/scheduler"
)

type stubRunner struct {
	err   error
	calls int
}

func (s *stubRunner) RunOnce(_ context.Context) error {
	s.calls++
	return s.err
}

func doRequest(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubRunner{}, "", zap.NewNop())

	rec := doRequest(t, srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doRequest(t, srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestEventsBeforeFirstCycle(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubRunner{}, filepath.Join(t.TempDir(), "theater-events.json"), zap.NewNop())

	rec := doRequest(t, srv, http.MethodGet, "/events")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsServesSnapshot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "theater-events.json")
	snapshot := `[{"id":"abc","title":"Hamlet"}]`
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0o644))

	srv := NewServer(&stubRunner{}, path, zap.NewNop())
	rec := doRequest(t, srv, http.MethodGet, "/events")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, snapshot, rec.Body.String())
}

func TestScrapeTrigger(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	srv := NewServer(runner, "", zap.NewNop())

	rec := doRequest(t, srv, http.MethodPost, "/scrape")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"completed"}`, rec.Body.String())
	assert.Equal(t, 1, runner.calls)
}

func TestScrapeConflictWhileRunning(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubRunner{err: scheduler.ErrCycleInProgress}, "", zap.NewNop())

	rec := doRequest(t, srv, http.MethodPost, "/scrape")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestScrapeFailure(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubRunner{err: errors.New("venues unavailable")}, "", zap.NewNop())

	rec := doRequest(t, srv, http.MethodPost, "/scrape")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "venues unavailable", body["error"])
}

func TestRequestIDPropagation(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubRunner{}, "", zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	// A missing inbound ID gets generated.
	rec = doRequest(t, srv, http.MethodGet, "/healthz")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
