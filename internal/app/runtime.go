package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether binaries should skip external side effects such
// as connecting to Postgres or Redis. The flag is read once and cached.
func InTestMode() bool {
	if cached := testMode.Load(); cached != nil {
		return *cached
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads ODYSSEY_TEST_MODE and returns the new value.
func RefreshTestMode() bool {
	enabled, err := strconv.ParseBool(os.Getenv(testModeEnv))
	enabled = err == nil && enabled
	testMode.Store(&enabled)
	return enabled
}
