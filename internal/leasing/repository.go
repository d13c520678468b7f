package leasing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for leases.
type Repository struct {
	pool db.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const leaseColumns = `id, tenant_org_id, lease_number, property_id, unit_id, tenant_id, owner_id,
	start_date, end_date, termination_date, termination_reason, base_rent_amount::text,
	base_rent_currency, rent_frequency, lease_status, notice_period_days, created_at, updated_at`

const scheduleColumns = `id, tenant_org_id, lease_id, due_date, period_start, period_end,
	scheduled_amount::text, outstanding_amount::text, currency, status, is_paid, paid_date`

// GetLease loads a lease within the caller's tenant scope.
func (r *Repository) GetLease(ctx context.Context, id int64) (Lease, error) {
	args := []any{id}
	scope, args := db.TenantFilter(ctx, "tenant_org_id", args)
	row := r.pool.QueryRow(ctx, `SELECT `+leaseColumns+` FROM leases WHERE id = $1`+scope, args...)
	lease, err := scanLease(row)
	if err != nil {
		return Lease{}, notFound(err, id)
	}
	return lease, nil
}

// ListSchedule returns all schedule entries of a lease ordered by due date.
func (r *Repository) ListSchedule(ctx context.Context, leaseID int64) ([]ScheduleEntry, error) {
	args := []any{leaseID}
	scope, args := db.TenantFilter(ctx, "tenant_org_id", args)
	rows, err := r.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM rent_schedules
		WHERE lease_id = $1`+scope+` ORDER BY due_date, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []ScheduleEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListExpiring returns active leases ending within [from, to].
func (r *Repository) ListExpiring(ctx context.Context, from, to time.Time) ([]Lease, error) {
	args := []any{StatusActive, from, to}
	scope, args := db.TenantFilter(ctx, "tenant_org_id", args)
	rows, err := r.pool.Query(ctx, `SELECT `+leaseColumns+` FROM leases
		WHERE lease_status = $1 AND end_date >= $2 AND end_date <= $3`+scope+`
		ORDER BY end_date, id`, args...)
	if err != nil {
		return nil, err
	}
	return collectLeases(rows)
}

func (t *txRepo) InsertLease(ctx context.Context, lease Lease) (Lease, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO leases (tenant_org_id, lease_number, property_id, unit_id,
		tenant_id, owner_id, start_date, end_date, base_rent_amount, base_rent_currency,
		rent_frequency, lease_status, notice_period_days)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id, created_at, updated_at`,
		lease.TenantOrgID, lease.Number, lease.PropertyID, lease.UnitID, lease.TenantID, lease.OwnerID,
		lease.StartDate, lease.EndDate, lease.BaseRent, lease.Currency, lease.Frequency, lease.Status,
		lease.NoticePeriodDays,
	).Scan(&lease.ID, &lease.CreatedAt, &lease.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Lease{}, fmt.Errorf("leasing: lease number %q already exists: %w", lease.Number, shared.ErrDuplicate)
		}
		return Lease{}, err
	}
	return lease, nil
}

func (t *txRepo) LockLease(ctx context.Context, id int64) (Lease, error) {
	args := []any{id}
	scope, args := db.TenantFilter(ctx, "tenant_org_id", args)
	row := t.tx.QueryRow(ctx, `SELECT `+leaseColumns+` FROM leases WHERE id = $1`+scope+` FOR UPDATE`, args...)
	lease, err := scanLease(row)
	if err != nil {
		return Lease{}, notFound(err, id)
	}
	return lease, nil
}

func (t *txRepo) UpdateLeaseTerms(ctx context.Context, id int64, endDate time.Time, rent decimal.Decimal, status LeaseStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE leases SET end_date = $2, base_rent_amount = $3, lease_status = $4,
		updated_at = NOW() WHERE id = $1`, id, endDate, rent, status)
	return err
}

func (t *txRepo) UpdateLeaseStatus(ctx context.Context, id int64, status LeaseStatus, terminationDate *time.Time, reason string) error {
	_, err := t.tx.Exec(ctx, `UPDATE leases SET lease_status = $2,
		termination_date = COALESCE($3, termination_date),
		termination_reason = CASE WHEN $4 = '' THEN termination_reason ELSE $4 END,
		updated_at = NOW() WHERE id = $1`, id, status, terminationDate, reason)
	return err
}

func (t *txRepo) InsertScheduleEntries(ctx context.Context, entries []ScheduleEntry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`INSERT INTO rent_schedules (tenant_org_id, lease_id, due_date, period_start, period_end,
			scheduled_amount, outstanding_amount, currency, status, is_paid)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			e.TenantOrgID, e.LeaseID, e.DueDate, e.PeriodStart, e.PeriodEnd,
			e.ScheduledAmount, e.OutstandingAmount, e.Currency, e.Status, e.IsPaid)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *txRepo) LastScheduleEntry(ctx context.Context, leaseID int64) (*ScheduleEntry, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM rent_schedules
		WHERE lease_id = $1 ORDER BY period_end DESC, id DESC LIMIT 1`, leaseID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (t *txRepo) LockUnit(ctx context.Context, tenantOrgID, unitID int64) error {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM units WHERE id = $1 AND tenant_org_id = $2 FOR UPDATE`,
		unitID, tenantOrgID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("leasing: unit %d in organisation %d: %w", unitID, tenantOrgID, shared.ErrNotFound)
	}
	return err
}

func (t *txRepo) CountOccupyingLeases(ctx context.Context, tenantOrgID, unitID, excludeLeaseID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM leases
		WHERE unit_id = $1 AND id <> $2 AND lease_status IN ($3, $4) AND tenant_org_id = $5`,
		unitID, excludeLeaseID, StatusActive, StatusRenewed, tenantOrgID).Scan(&n)
	return n, err
}

func (t *txRepo) SetUnitStatus(ctx context.Context, tenantOrgID, unitID int64, status UnitStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE units SET current_status = $2, updated_at = NOW()
		WHERE id = $1 AND tenant_org_id = $3`, unitID, status, tenantOrgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("leasing: unit %d in organisation %d: %w", unitID, tenantOrgID, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) ListExpiredActive(ctx context.Context, before time.Time, afterID int64, limit int) ([]Lease, error) {
	args := []any{StatusActive, before, afterID}
	scope, args := db.TenantFilter(ctx, "tenant_org_id", args)
	limitSQL, args := db.LimitClause(limit, args)
	rows, err := t.tx.Query(ctx, `SELECT `+leaseColumns+` FROM leases
		WHERE lease_status = $1 AND end_date < $2 AND id > $3`+scope+`
		ORDER BY id FOR UPDATE`+limitSQL, args...)
	if err != nil {
		return nil, err
	}
	return collectLeases(rows)
}

func collectLeases(rows pgx.Rows) ([]Lease, error) {
	defer rows.Close()
	var leases []Lease
	for rows.Next() {
		lease, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, lease)
	}
	return leases, rows.Err()
}

func scanLease(row pgx.Row) (Lease, error) {
	var (
		l    Lease
		rent string
	)
	err := row.Scan(&l.ID, &l.TenantOrgID, &l.Number, &l.PropertyID, &l.UnitID, &l.TenantID, &l.OwnerID,
		&l.StartDate, &l.EndDate, &l.TerminationDate, &l.TerminationReason, &rent,
		&l.Currency, &l.Frequency, &l.Status, &l.NoticePeriodDays, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Lease{}, err
	}
	if l.BaseRent, err = decimal.NewFromString(rent); err != nil {
		return Lease{}, fmt.Errorf("leasing: parse rent of lease %d: %w", l.ID, err)
	}
	return l, nil
}

func scanEntry(row pgx.Row) (ScheduleEntry, error) {
	var (
		e                      ScheduleEntry
		scheduled, outstanding string
	)
	err := row.Scan(&e.ID, &e.TenantOrgID, &e.LeaseID, &e.DueDate, &e.PeriodStart, &e.PeriodEnd,
		&scheduled, &outstanding, &e.Currency, &e.Status, &e.IsPaid, &e.PaidDate)
	if err != nil {
		return ScheduleEntry{}, err
	}
	if e.ScheduledAmount, err = decimal.NewFromString(scheduled); err != nil {
		return ScheduleEntry{}, err
	}
	if e.OutstandingAmount, err = decimal.NewFromString(outstanding); err != nil {
		return ScheduleEntry{}, err
	}
	return e, nil
}

func notFound(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("leasing: lease %d: %w", id, shared.ErrNotFound)
	}
	return err
}
