package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/config"
)

type stubProbe struct{ err error }

func (p stubProbe) Healthy(context.Context) error { return p.err }

func newTestHealthMux() *http.ServeMux {
	return newTestHealthMuxWithProbe(nil)
}

func newTestHealthMuxWithProbe(db DatabaseProbe) *http.ServeMux {
	cfg := &config.Config{
		Version: "test-version",
		Env:     "test",
	}
	mux := http.NewServeMux()
	NewHealthHandler(cfg, db, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestHealthHandler_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHealthMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHealthHandler_Ping(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHealthMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp PingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test-version", resp.Version)
	assert.Equal(t, "preceptor-engine", resp.Service)
	assert.Equal(t, "test", resp.Environment)
	assert.Equal(t, runtime.Version(), resp.GoVersion)
	assert.NotEmpty(t, resp.Hostname)
	assert.Equal(t, "unknown", resp.Database)
}

func TestHealthHandler_PingDatabase(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestHealthMuxWithProbe(stubProbe{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp PingResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "ok", resp.Database)
	})

	t.Run("unreachable", func(t *testing.T) {
		rec := httptest.NewRecorder()
		probe := stubProbe{err: errors.New("connection refused")}
		newTestHealthMuxWithProbe(probe).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp PingResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unavailable", resp.Database)
	})
}

func TestHealthHandler_RejectsOtherMethods(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHealthMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
