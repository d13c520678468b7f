package leasing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

type stubService struct {
	created   CreateLeaseInput
	renewed   RenewInput
	sweptAsOf time.Time
	days      int
	err       error
}

func (s *stubService) CreateLease(_ context.Context, in CreateLeaseInput) (Lease, error) {
	s.created = in
	return Lease{ID: 11, Number: in.Number, Status: StatusDraft}, s.err
}

func (s *stubService) GetLease(_ context.Context, id int64) (Lease, error) {
	return Lease{ID: id}, s.err
}

func (s *stubService) ListSchedule(context.Context, int64) ([]ScheduleEntry, error) {
	return nil, s.err
}

func (s *stubService) Activate(_ context.Context, id int64) (Lease, error) {
	return Lease{ID: id, Status: StatusActive}, s.err
}

func (s *stubService) Terminate(_ context.Context, in TerminateInput) (Lease, error) {
	return Lease{ID: in.LeaseID, Status: StatusTerminated}, s.err
}

func (s *stubService) Renew(_ context.Context, in RenewInput) (RenewalResult, error) {
	s.renewed = in
	return RenewalResult{LeaseID: in.LeaseID}, s.err
}

func (s *stubService) SweepExpired(_ context.Context, asOf time.Time) (int, error) {
	s.sweptAsOf = asOf
	return 3, s.err
}

func (s *stubService) DetectExpiring(_ context.Context, days int) ([]ExpiringLease, error) {
	s.days = days
	return []ExpiringLease{{LeaseID: 1, DaysRemaining: 4}}, s.err
}

type recordingGuard struct {
	names []string
}

func (g *recordingGuard) Do(ctx context.Context, name string, asOf time.Time, fn shared.SweepFunc) (int, error) {
	g.names = append(g.names, name)
	return fn(ctx, asOf)
}

func newTestRouter(svc LeaseService, guard shared.SweepGuard, tenant int64) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithTenant(req.Context(), tenant)))
		})
	})
	NewHandler(nil, svc, guard).MountRoutes(r)
	return r
}

func TestHandlerCreateLease(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, nil, 4)
	body := `{"lease_number":"L-1","property_id":1,"tenant_id":2,"start_date":"2024-01-01",
		"end_date":"2025-01-01","base_rent_amount":"1000.00","rent_frequency":"MONTHLY"}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leases/", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, int64(4), svc.created.TenantOrgID)
	require.Equal(t, shared.Date(2024, time.January, 1), svc.created.StartDate)
	require.Equal(t, "1000", svc.created.BaseRent.String())
	var got Lease
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, int64(11), got.ID)
}

func TestHandlerCreateLeaseRequiresTenant(t *testing.T) {
	router := newTestRouter(&stubService{}, nil, 0)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leases/", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestHandlerCreateLeaseRejectsBadDate(t *testing.T) {
	router := newTestRouter(&stubService{}, nil, 1)
	rec := httptest.NewRecorder()
	body := `{"lease_number":"L-1","start_date":"01/01/2024","end_date":"2025-01-01"}`
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leases/", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("lease 9: %w", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("cannot activate: %w", shared.ErrInvalidState), http.StatusConflict},
		{fmt.Errorf("bad rent: %w", shared.ErrValidation), http.StatusBadRequest},
	}
	for _, tc := range cases {
		router := newTestRouter(&stubService{err: tc.err}, nil, 1)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leases/9/activate", nil))
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestHandlerRejectsBadLeaseID(t *testing.T) {
	router := newTestRouter(&stubService{}, nil, 1)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leases/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRenewParsesBody(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, nil, 1)
	rec := httptest.NewRecorder()
	body := `{"new_end_date":"2026-01-01","rent_escalation_percentage":5}`
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/automation/renew-lease/6", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(6), svc.renewed.LeaseID)
	require.Equal(t, shared.Date(2026, time.January, 1), *svc.renewed.NewEndDate)
	require.Equal(t, "5", svc.renewed.EscalationPct.String())
	require.Nil(t, svc.renewed.NewRent)
}

func TestHandlerAutoTerminateRunsThroughGuard(t *testing.T) {
	svc := &stubService{}
	guard := &recordingGuard{}
	router := newTestRouter(svc, guard, 0)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/automation/auto-terminate?as_of=2025-03-01", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{shared.SweepLeaseExpiry}, guard.names)
	require.Equal(t, shared.Date(2025, time.March, 1), svc.sweptAsOf)
	require.JSONEq(t, `{"sweep":"lease-expiry","as_of":"2025-03-01","count":3}`, rec.Body.String())
}

func TestHandlerAutoTerminateInProgress(t *testing.T) {
	router := newTestRouter(&stubService{err: shared.ErrSweepInProgress}, nil, 0)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/automation/auto-terminate", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerExpiringDays(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, nil, 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/automation/expiring-leases?days=14", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 14, svc.days)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/automation/expiring-leases?days=-1", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
