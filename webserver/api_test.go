package webserver_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"CDRGo/internal/config"
	"CDRGo/internal/endpoint"
	"CDRGo/internal/engine"
	"CDRGo/internal/extension"
	"CDRGo/internal/metrics"
	"CDRGo/webserver"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *webserver.Server {
	t.Helper()
	cfg := &config.Config{OutputDir: "/tmp", HTTPPort: 8090}
	ext := extension.New()
	ep := endpoint.New()
	m := metrics.New()
	return webserver.NewServer(cfg, ext, ep, engine.Config{}, m)
}

func TestServeStats_ReturnsJSON(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.Contains(t, rec.Body.String(), "cpu_count")
}

func TestReloadConfig_RequiresAdminTokenWhenConfigured(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{OutputDir: "/tmp", HTTPPort: 8090, AdminToken: "s3cret"}
	srv := webserver.NewServer(cfg, extension.New(), endpoint.New(), engine.Config{}, metrics.New())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/config", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReloadConfig_NoTokenConfiguredPassesThrough(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/config", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.NotEqual(t, http.StatusUnauthorized, rec.Code)
}

func TestServeRun_RequiresAdminTokenWhenConfigured(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{OutputDir: "/tmp", InputDir: t.TempDir(), HTTPPort: 8090, AdminToken: "s3cret"}
	srv := webserver.NewServer(cfg, extension.New(), endpoint.New(), engine.Config{}, metrics.New())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/run", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServeRun_NoTokenConfiguredAccepted(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{OutputDir: t.TempDir(), InputDir: t.TempDir(), HTTPPort: 8090}
	srv := webserver.NewServer(cfg, extension.New(), endpoint.New(), engine.Config{}, metrics.New())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/run", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMetricsEndpoint_Served(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
