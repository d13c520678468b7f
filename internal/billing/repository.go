package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pm/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for billing sweeps.
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

// ListActiveRules returns active late fee rules ordered by id.
func (r *Repository) ListActiveRules(ctx context.Context) ([]LateFeeRule, error) {
	var args []any
	scope, args := db.TenantFilter(ctx, "tenant_org_id", args)
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_org_id, name, fee_type, fee_value::text,
		grace_period_days, max_fee_amount::text, is_active
		FROM late_fee_rules WHERE is_active`+scope+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []LateFeeRule
	for rows.Next() {
		var (
			rule   LateFeeRule
			value  string
			maxFee *string
		)
		if err := rows.Scan(&rule.ID, &rule.TenantOrgID, &rule.Name, &rule.FeeType, &value,
			&rule.GracePeriodDays, &maxFee, &rule.Active); err != nil {
			return nil, err
		}
		if rule.FeeValue, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("billing: parse fee value of rule %d: %w", rule.ID, err)
		}
		if maxFee != nil {
			capped, err := decimal.NewFromString(*maxFee)
			if err != nil {
				return nil, fmt.Errorf("billing: parse max fee of rule %d: %w", rule.ID, err)
			}
			rule.MaxFee = &capped
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (t *txRepo) ListDueEntries(ctx context.Context, dueDate time.Time, afterID int64, limit int) ([]DueEntry, error) {
	args := []any{dueDate, afterID}
	scope, args := db.TenantFilter(ctx, "s.tenant_org_id", args)
	limitSQL, args := db.LimitClause(limit, args)
	rows, err := t.tx.Query(ctx, `SELECT s.id, s.tenant_org_id, l.id, l.lease_number, l.tenant_id,
		l.property_id, l.unit_id, s.due_date, s.period_start, s.period_end, s.scheduled_amount::text, s.currency
		FROM rent_schedules s JOIN leases l ON l.id = s.lease_id
		WHERE s.due_date = $1 AND s.id > $2
		AND s.status IN ('SCHEDULED', 'PENDING')
		AND l.lease_status IN ('ACTIVE', 'RENEWED')`+scope+`
		ORDER BY s.id FOR UPDATE OF s`+limitSQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []DueEntry
	for rows.Next() {
		var (
			e      DueEntry
			amount string
		)
		if err := rows.Scan(&e.EntryID, &e.TenantOrgID, &e.LeaseID, &e.LeaseNumber, &e.TenantID,
			&e.PropertyID, &e.UnitID, &e.DueDate, &e.PeriodStart, &e.PeriodEnd, &amount, &e.Currency); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (t *txRepo) InsertRentInvoice(ctx context.Context, inv Invoice) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO invoices (tenant_org_id, invoice_number, kind, lease_id,
		tenant_id, property_id, unit_id, invoice_date, due_date, total_amount, currency, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (lease_id, due_date) WHERE kind = 'RENT' DO NOTHING
		RETURNING id`,
		inv.TenantOrgID, inv.Number, KindRent, inv.LeaseID, inv.TenantID, inv.PropertyID, inv.UnitID,
		inv.InvoiceDate, inv.DueDate, inv.Total, inv.Currency, inv.Status,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

func (t *txRepo) InsertLine(ctx context.Context, line InvoiceLine) (bool, error) {
	tag, err := t.tx.Exec(ctx, `INSERT INTO invoice_lines (invoice_id, kind, description, quantity,
		unit_price, line_total, schedule_entry_id, late_fee_rule_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (invoice_id, late_fee_rule_id) WHERE late_fee_rule_id IS NOT NULL DO NOTHING`,
		line.InvoiceID, line.Kind, line.Description, line.Quantity, line.UnitPrice, line.LineTotal,
		line.ScheduleEntryID, line.LateFeeRuleID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) MarkEntryInvoiced(ctx context.Context, entryID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE rent_schedules SET status = 'INVOICED' WHERE id = $1`, entryID)
	return err
}

func (t *txRepo) ListOverdueInvoices(ctx context.Context, dueOnOrBefore time.Time, afterID int64, limit int) ([]OverdueInvoice, error) {
	args := []any{dueOnOrBefore, afterID}
	scope, args := db.TenantFilter(ctx, "i.tenant_org_id", args)
	limitSQL, args := db.LimitClause(limit, args)
	rows, err := t.tx.Query(ctx, `SELECT i.id, i.tenant_org_id, i.invoice_number, i.due_date,
		i.total_amount::text, i.currency, i.status,
		ARRAY(SELECT l.late_fee_rule_id FROM invoice_lines l
			WHERE l.invoice_id = i.id AND l.late_fee_rule_id IS NOT NULL ORDER BY l.late_fee_rule_id)
		FROM invoices i
		WHERE i.due_date <= $1 AND i.id > $2
		AND i.status IN ('POSTED', 'PARTIALLY_PAID')`+scope+`
		ORDER BY i.id FOR UPDATE OF i`+limitSQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []OverdueInvoice
	for rows.Next() {
		var (
			inv   OverdueInvoice
			total string
		)
		if err := rows.Scan(&inv.ID, &inv.TenantOrgID, &inv.Number, &inv.DueDate, &total,
			&inv.Currency, &inv.Status, &inv.FeeRuleIDs); err != nil {
			return nil, err
		}
		if inv.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (t *txRepo) AddToTotal(ctx context.Context, invoiceID int64, amount decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET total_amount = total_amount + $2, updated_at = NOW()
		WHERE id = $1`, invoiceID, amount)
	return err
}
