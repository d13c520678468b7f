package leasing

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

// Event is a lease lifecycle trigger.
type Event string

const (
	EventActivate  Event = "activate"
	EventRenew     Event = "renew"
	EventTerminate Event = "terminate"
	EventExpire    Event = "expire"
)

// transitions lists every permitted (state, event) pair. Anything absent is rejected.
var transitions = map[LeaseStatus]map[Event]LeaseStatus{
	StatusDraft: {
		EventActivate:  StatusActive,
		EventTerminate: StatusTerminated,
	},
	StatusActive: {
		EventRenew:     StatusRenewed,
		EventTerminate: StatusTerminated,
		EventExpire:    StatusExpired,
	},
	StatusRenewed: {
		EventTerminate: StatusTerminated,
	},
	StatusTerminated: {},
	StatusExpired:    {},
}

// Next resolves the state reached from current on event.
func Next(current LeaseStatus, event Event) (LeaseStatus, error) {
	if next, ok := transitions[current][event]; ok {
		return next, nil
	}
	return "", fmt.Errorf("leasing: cannot %s a %s lease: %w", event, current, shared.ErrInvalidState)
}

// occupancyFor returns the unit status implied by entering next, and false
// when the transition leaves occupancy unchanged.
func occupancyFor(previous, next LeaseStatus) (UnitStatus, bool) {
	switch {
	case next.Occupying() && !previous.Occupying():
		return UnitOccupied, true
	case next.Terminal() && previous.Occupying():
		return UnitVacant, true
	default:
		return "", false
	}
}
