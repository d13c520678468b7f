package shared

import "errors"

var (
	// ErrNotFound indicates the referenced lease, rule or schedule entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates the lease is not in the state the operation requires.
	ErrInvalidState = errors.New("invalid state")
	// ErrDuplicate indicates a unique key such as a lease number is already taken.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrSweepInProgress is returned when another run holds the sweep lock.
	ErrSweepInProgress = errors.New("sweep already in progress")
)
