package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobCollectors(t *testing.T) {
	metrics := NewMetrics()
	tracker := metrics.Jobs().Track("lease-expiry")
	require.NoError(t, tracker.End(nil))
	metrics.Jobs().AddRecords("lease-expiry", 3)

	body := scrape(t, metrics)
	require.Contains(t, body, `odyssey_jobs_total{job="lease-expiry",status="success"} 1`)
	require.Contains(t, body, `odyssey_sweep_records_total{job="lease-expiry"} 3`)
	require.Contains(t, body, "go_goroutines")
}

func TestMetricsMiddlewareRecordsRoutePattern(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/leases/{id}")
	req := httptest.NewRequest(http.MethodGet, "/leases/42", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `odyssey_http_requests_total{code="418",route="/leases/{id}"} 1`)
	require.Contains(t, body, `odyssey_http_request_duration_seconds_bucket{route="/leases/{id}"`)
}

func TestMetricsMiddlewareWithoutRouteContext(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Contains(t, scrape(t, metrics), `odyssey_http_requests_total{code="200",route="unknown"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Nil(t, metrics.Jobs())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	require.NotNil(t, metrics.Middleware(next))
}
