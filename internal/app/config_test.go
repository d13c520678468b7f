package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pm/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, SchedulerAsynq, cfg.SchedulerBackend)
	require.Equal(t, 0, cfg.SweepBatchSize)
	require.Equal(t, 30*time.Minute, cfg.SweepLockTTL)
	require.Equal(t, 60, cfg.ExpiringLeaseDays)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SCHEDULER_BACKEND", "local")
	t.Setenv("SWEEP_BATCH_SIZE", "200")
	t.Setenv("SWEEP_LATE_FEE_CRON", "")
	t.Setenv("EXPIRING_LEASE_DAYS", "90")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, SchedulerLocal, cfg.SchedulerBackend)
	require.Equal(t, 200, cfg.SweepBatchSize)
	require.Equal(t, 90, cfg.ExpiringLeaseDays)

	specs := cfg.SweepSpecs()
	require.Equal(t, "5 0 * * *", specs[jobs.TaskLeaseExpiry])
	require.Empty(t, specs[jobs.TaskLateFees])
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"backend":    {"SCHEDULER_BACKEND", "kafka"},
		"batch size": {"SWEEP_BATCH_SIZE", "-1"},
		"lock ttl":   {"SWEEP_LOCK_TTL", "0s"},
		"log format": {"LOG_FORMAT", "xml"},
		"window":     {"EXPIRING_LEASE_DAYS", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{AppEnv: "test", LogFormat: "json"}).Info("hello")
	require.Contains(t, buf.String(), `"msg":"hello"`)
	require.Contains(t, buf.String(), `"env":"test"`)

	buf.Reset()
	newLogger(&buf, nil).Info("plain")
	require.Contains(t, buf.String(), "msg=plain")
}

func TestInTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	require.True(t, RefreshTestMode())
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "nope")
	require.False(t, RefreshTestMode())
	require.False(t, InTestMode())
}
