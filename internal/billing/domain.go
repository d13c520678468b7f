package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceKind separates scheduled rent invoices from ad-hoc ones.
type InvoiceKind string

const (
	KindRent  InvoiceKind = "RENT"
	KindAdhoc InvoiceKind = "ADHOC"
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "DRAFT"
	InvoicePosted        InvoiceStatus = "POSTED"
	InvoicePartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoicePaid          InvoiceStatus = "PAID"
	InvoiceVoided        InvoiceStatus = "VOIDED"
)

// LineKind tags what an invoice line bills for.
type LineKind string

const (
	LineRent    LineKind = "RENT"
	LineLateFee LineKind = "LATE_FEE"
	LineAdhoc   LineKind = "ADHOC"
)

// FeeType selects how a late fee is computed.
type FeeType string

const (
	FeeFlat       FeeType = "FLAT"
	FeePercentage FeeType = "PERCENTAGE"
)

// DefaultGraceDays applies when a rule leaves its grace period unset.
const DefaultGraceDays = 5

// Invoice is a billing document issued to a lease tenant.
type Invoice struct {
	ID          int64           `json:"id"`
	TenantOrgID int64           `json:"tenant_org_id"`
	Number      string          `json:"invoice_number"`
	Kind        InvoiceKind     `json:"kind"`
	LeaseID     int64           `json:"lease_id"`
	TenantID    int64           `json:"tenant_id"`
	PropertyID  int64           `json:"property_id"`
	UnitID      *int64          `json:"unit_id,omitempty"`
	InvoiceDate time.Time       `json:"invoice_date"`
	DueDate     time.Time       `json:"due_date"`
	Total       decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	Status      InvoiceStatus   `json:"status"`
	Lines       []InvoiceLine   `json:"lines,omitempty"`
}

// InvoiceLine is one charge on an invoice.
type InvoiceLine struct {
	ID              int64           `json:"id"`
	InvoiceID       int64           `json:"invoice_id"`
	Kind            LineKind        `json:"kind"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
	ScheduleEntryID *int64          `json:"schedule_entry_id,omitempty"`
	LateFeeRuleID   *int64          `json:"late_fee_rule_id,omitempty"`
}

// LateFeeRule configures a penalty for overdue invoices in one tenant scope.
type LateFeeRule struct {
	ID              int64
	TenantOrgID     int64
	Name            string
	FeeType         FeeType
	FeeValue        decimal.Decimal
	GracePeriodDays *int
	MaxFee          *decimal.Decimal
	Active          bool
}

// Grace returns the configured grace period, defaulting to DefaultGraceDays.
func (r LateFeeRule) Grace() int {
	if r.GracePeriodDays == nil {
		return DefaultGraceDays
	}
	if *r.GracePeriodDays < 0 {
		return 0
	}
	return *r.GracePeriodDays
}

// DueEntry is a billable schedule entry joined with its lease.
type DueEntry struct {
	EntryID     int64
	TenantOrgID int64
	LeaseID     int64
	LeaseNumber string
	TenantID    int64
	PropertyID  int64
	UnitID      *int64
	DueDate     time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	Amount      decimal.Decimal
	Currency    string
}

// OverdueInvoice is an open invoice plus the rules already charged on it.
type OverdueInvoice struct {
	ID          int64
	TenantOrgID int64
	Number      string
	DueDate     time.Time
	Total       decimal.Decimal
	Currency    string
	Status      InvoiceStatus
	FeeRuleIDs  []int64
}

func (o OverdueInvoice) charged(ruleID int64) bool {
	for _, id := range o.FeeRuleIDs {
		if id == ruleID {
			return true
		}
	}
	return false
}
