package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/weather-forecast-etl/internal/adapter/http"
	"github.com/couchcryptid/weather-forecast-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStatus struct {
	err      error
	progress domain.RunProgress
}

func (m *mockStatus) CheckReadiness(_ context.Context) error { return m.err }
func (m *mockStatus) Progress() domain.RunProgress { return m.progress }

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockStatus{err: readyErr}, slog.Default())
}

func get(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("last run was rolled back")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusReturnsProgress(t *testing.T) {
	started := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	srv := httpadapter.NewServer(":0", &mockStatus{progress: domain.RunProgress{
		RunID:       "run-1",
		StartedAt:   started,
		CitiesTotal: 3,
		CitiesDone:  2,
		Loaded:      30,
		Rejected:    1,
		Outcome:     "running",
	}}, slog.Default())

	rec := get(srv, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got domain.RunProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 2, got.CitiesDone)
	assert.Equal(t, 30, got.Loaded)
	assert.Equal(t, "running", got.Outcome)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
