package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fritz-collector/config"
)

func newTestServer(registry *prometheus.Registry) *Server {
	cfg := config.ServerConfig{
		Addr:         "127.0.0.1:0",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		IdleTimeout:  time.Second,
	}
	return NewHTTPServer(cfg, zap.NewNop(), registry)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(prometheus.NewRegistry())

	rec := get(t, s, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRootListsRoutes(t *testing.T) {
	s := newTestServer(prometheus.NewRegistry())

	rec := get(t, s, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/health")
	assert.Contains(t, rec.Body.String(), "/metrics")
}

func TestMetricsServesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "agent_test_total"})
	require.NoError(t, registry.Register(counter))
	counter.Add(3)

	s := newTestServer(registry)
	rec := get(t, s, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agent_test_total 3")
}
