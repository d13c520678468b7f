package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pm/internal/leasing"
	"github.com/odyssey-erp/odyssey-pm/internal/observability"
	"github.com/odyssey-erp/odyssey-pm/internal/shared"
	"github.com/odyssey-erp/odyssey-pm/jobs"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger:     testLogger(),
		Config:     &Config{AppRateLimit: 0},
		Metrics:    observability.NewMetrics(),
		JobHandler: jobs.NewHandler(nil, testLogger()),
	})

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/jobs/health"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equalf(t, http.StatusOK, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRouterReadinessReportsDatabaseFailure(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger:   testLogger(),
		Config:   &Config{},
		Database: pingerFunc(func(context.Context) error { return errors.New("down") }),
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRouterMountsLeaseRoutes(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger:         testLogger(),
		Config:         &Config{},
		LeasingHandler: leasing.NewHandler(testLogger(), nil, nil),
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/leases/not-a-number", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestTenantMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(TenantMiddleware(testLogger()))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := shared.TenantFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		require.Equal(t, int64(12), tenant)
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		header string
		want   int
	}{
		{header: "", want: http.StatusNoContent},
		{header: "12", want: http.StatusOK},
		{header: "abc", want: http.StatusBadRequest},
		{header: "-3", want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set(TenantHeader, tc.header)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		require.Equalf(t, tc.want, rr.Code, "header %q", tc.header)
	}
}
