package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLeaseExpiry flips overdue active leases to expired.
	TaskLeaseExpiry = "leasing:expire"
	// TaskRentInvoicing issues rent invoices for entries due today.
	TaskRentInvoicing = "billing:invoice"
	// TaskLateFees charges late fees on overdue invoices.
	TaskLateFees = "billing:late_fees"
)

// SweepPayload pins a sweep run to a calendar date. An empty AsOf means the
// worker's current date.
type SweepPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// Date parses AsOf. It returns the zero time when AsOf is empty.
func (p SweepPayload) Date() (time.Time, error) {
	if p.AsOf == "" {
		return time.Time{}, nil
	}
	return shared.ParseDate(p.AsOf)
}

// sweepNames maps task types to their sweep names.
var sweepNames = map[string]string{
	TaskLeaseExpiry:   shared.SweepLeaseExpiry,
	TaskRentInvoicing: shared.SweepRentInvoicing,
	TaskLateFees:      shared.SweepLateFees,
}

// SweepName returns the sweep name of a task type.
func SweepName(taskType string) (string, bool) {
	name, ok := sweepNames[taskType]
	return name, ok
}

// NewSweepTask constructs an Asynq task for a sweep. A zero asOf leaves the
// date to the worker.
func NewSweepTask(taskType string, asOf time.Time) (*asynq.Task, error) {
	if _, ok := sweepNames[taskType]; !ok {
		return nil, fmt.Errorf("jobs: unknown sweep task %s", taskType)
	}
	payload := SweepPayload{}
	if !asOf.IsZero() {
		payload.AsOf = shared.DateOf(asOf).Format(shared.DateLayout)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault)), nil
}
