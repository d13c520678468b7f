package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, time.Minute), mr
}

func TestSweepLockKey(t *testing.T) {
	asOf := time.Date(2024, time.June, 1, 13, 0, 0, 0, time.UTC)
	require.Equal(t, "sweep:rent-invoicing:2024-06-01:all", SweepLockKey(context.Background(), SweepRentInvoicing, asOf))

	scoped := ContextWithTenant(context.Background(), 7)
	require.Equal(t, "sweep:rent-invoicing:2024-06-01:7", SweepLockKey(scoped, SweepRentInvoicing, asOf))
}

func TestLockerRejectsSecondHolder(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "sweep:test:2024-06-01")
	require.NoError(t, err)
	require.True(t, mr.Exists("sweep:test:2024-06-01"))

	_, err = locker.Acquire(ctx, "sweep:test:2024-06-01")
	require.ErrorIs(t, err, ErrSweepInProgress)

	require.NoError(t, release(ctx))
	require.False(t, mr.Exists("sweep:test:2024-06-01"))

	release, err = locker.Acquire(ctx, "sweep:test:2024-06-01")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestLockerReleaseKeepsForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "sweep:test:2024-06-02")
	require.NoError(t, err)

	// Simulate expiry followed by another worker taking the lock.
	mr.Del("sweep:test:2024-06-02")
	require.NoError(t, mr.Set("sweep:test:2024-06-02", "other"))

	require.NoError(t, release(ctx))
	got, err := mr.Get("sweep:test:2024-06-02")
	require.NoError(t, err)
	require.Equal(t, "other", got)
}

func TestLockerExpires(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "sweep:test:2024-06-03")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	release, err := locker.Acquire(ctx, "sweep:test:2024-06-03")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestNilLockerIsNoop(t *testing.T) {
	var locker *Locker
	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
}

func TestTenantContext(t *testing.T) {
	_, ok := TenantFromContext(context.Background())
	require.False(t, ok)

	ctx := ContextWithTenant(context.Background(), 42)
	id, ok := TenantFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, int64(42), id)
}
