package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pm/internal/app"
)

func TestMain(m *testing.M) {
	_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
	app.RefreshTestMode()
	os.Exit(m.Run())
}

func TestMainSkipsInTestMode(t *testing.T) {
	require.NotPanics(t, main)
}
