package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/okabe-lab/assetdesk-backend/pkg/config"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(Dependencies{
		Config:  &config.Config{App: config.AppConfig{Env: "test"}},
		Metrics: prometheus.NewRegistry(),
	}, Services{})
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/items"},
		{http.MethodGet, "/api/v1/loans"},
		{http.MethodGet, "/api/v1/locations"},
		{http.MethodGet, "/api/v1/dashboard"},
		{http.MethodPost, "/api/v1/scan"},
	}

	for _, route := range protected {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(route.method, route.path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", route.method, route.path, resp.Code)
		}
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/unknown", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
