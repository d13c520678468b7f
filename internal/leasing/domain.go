package leasing

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeaseStatus enumerates lease lifecycle states.
type LeaseStatus string

const (
	StatusDraft      LeaseStatus = "DRAFT"
	StatusActive     LeaseStatus = "ACTIVE"
	StatusRenewed    LeaseStatus = "RENEWED"
	StatusTerminated LeaseStatus = "TERMINATED"
	StatusExpired    LeaseStatus = "EXPIRED"
)

// Occupying reports whether a lease in this state holds its unit.
func (s LeaseStatus) Occupying() bool {
	return s == StatusActive || s == StatusRenewed
}

// Terminal reports whether no further transitions are possible.
func (s LeaseStatus) Terminal() bool {
	return s == StatusTerminated || s == StatusExpired
}

// Frequency is the rent billing cadence.
type Frequency string

const (
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

// Months returns the period length in calendar months, or 0 when unsupported.
func (f Frequency) Months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	default:
		return 0
	}
}

// Valid reports whether f is a supported frequency.
func (f Frequency) Valid() bool {
	return f.Months() > 0
}

// ScheduleStatus enumerates rent schedule entry states.
type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "SCHEDULED"
	SchedulePending   ScheduleStatus = "PENDING"
	ScheduleInvoiced  ScheduleStatus = "INVOICED"
	SchedulePaid      ScheduleStatus = "PAID"
)

// UnitStatus is the derived occupancy flag of a unit.
type UnitStatus string

const (
	UnitVacant   UnitStatus = "VACANT"
	UnitOccupied UnitStatus = "OCCUPIED"
)

// DefaultCurrency applies when a lease does not carry one.
const DefaultCurrency = "USD"

// DefaultExpiringWindowDays is the look-ahead for expiring-lease detection.
const DefaultExpiringWindowDays = 60

// ExpiryReason is recorded on leases flipped by the expiry sweep.
const ExpiryReason = "Auto-terminated: lease expired"

// Lease is a tenancy agreement scoped to a tenant organisation.
type Lease struct {
	ID                int64           `json:"id"`
	TenantOrgID       int64           `json:"tenant_org_id"`
	Number            string          `json:"lease_number"`
	PropertyID        int64           `json:"property_id"`
	UnitID            *int64          `json:"unit_id,omitempty"`
	TenantID          int64           `json:"tenant_id"`
	OwnerID           *int64          `json:"owner_id,omitempty"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	TerminationDate   *time.Time      `json:"termination_date,omitempty"`
	TerminationReason string          `json:"termination_reason,omitempty"`
	BaseRent          decimal.Decimal `json:"base_rent_amount"`
	Currency          string          `json:"base_rent_currency"`
	Frequency         Frequency       `json:"rent_frequency"`
	Status            LeaseStatus     `json:"lease_status"`
	NoticePeriodDays  int             `json:"notice_period_days"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ScheduleEntry is one billed period within a lease.
type ScheduleEntry struct {
	ID                int64           `json:"id"`
	TenantOrgID       int64           `json:"tenant_org_id"`
	LeaseID           int64           `json:"lease_id"`
	DueDate           time.Time       `json:"due_date"`
	PeriodStart       time.Time       `json:"period_start"`
	PeriodEnd         time.Time       `json:"period_end"`
	ScheduledAmount   decimal.Decimal `json:"scheduled_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	Currency          string          `json:"currency"`
	Status            ScheduleStatus  `json:"status"`
	IsPaid            bool            `json:"is_paid"`
	PaidDate          *time.Time      `json:"paid_date,omitempty"`
}

// CreateLeaseInput carries the fields required to create a lease.
type CreateLeaseInput struct {
	TenantOrgID      int64           `validate:"required,gt=0"`
	Number           string          `validate:"required,max=50"`
	PropertyID       int64           `validate:"required,gt=0"`
	UnitID           *int64          `validate:"omitempty,gt=0"`
	TenantID         int64           `validate:"required,gt=0"`
	OwnerID          *int64          `validate:"omitempty,gt=0"`
	StartDate        time.Time       `validate:"required"`
	EndDate          time.Time       `validate:"required"`
	BaseRent         decimal.Decimal
	Currency         string          `validate:"omitempty,len=3"`
	Frequency        Frequency       `validate:"omitempty,oneof=MONTHLY QUARTERLY YEARLY"`
	Status           LeaseStatus     `validate:"omitempty,oneof=DRAFT ACTIVE"`
	NoticePeriodDays int             `validate:"gte=0"`
}

// RenewInput parameterises a lease renewal. Nil fields take their defaults.
type RenewInput struct {
	LeaseID       int64
	NewEndDate    *time.Time
	NewRent       *decimal.Decimal
	EscalationPct *decimal.Decimal
}

// RenewalResult reports the effective terms after renewal.
type RenewalResult struct {
	LeaseID    int64           `json:"lease_id"`
	NewEndDate time.Time       `json:"new_end_date"`
	NewRent    decimal.Decimal `json:"new_rent"`
	Entries    int             `json:"schedule_entries_created"`
}

// TerminateInput records a manual termination.
type TerminateInput struct {
	LeaseID int64
	Date    *time.Time
	Reason  string
}

// ExpiringLease summarises an active lease approaching its end date.
type ExpiringLease struct {
	LeaseID       int64     `json:"lease_id"`
	Number        string    `json:"lease_number"`
	TenantID      int64     `json:"tenant_id"`
	EndDate       time.Time `json:"end_date"`
	DaysRemaining int       `json:"days_remaining"`
}
