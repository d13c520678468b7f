package shared

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SweepLockKey builds the redis key serialising one sweep for one calendar day
// within the tenant scope of ctx: sweep:<name>:<date>:<tenant|all>. Runs in
// different scopes select different rows and never share a key.
func SweepLockKey(ctx context.Context, sweep string, asOf time.Time) string {
	return fmt.Sprintf("sweep:%s:%s:%s", sweep, DateOf(asOf).Format(DateLayout), sweepScope(ctx))
}

func sweepScope(ctx context.Context) string {
	if tenant, ok := TenantFromContext(ctx); ok {
		return strconv.FormatInt(tenant, 10)
	}
	return "all"
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive locks backed by redis.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker constructs a Locker. A nil client yields a no-op locker.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Locker{client: client, ttl: ttl}
}

// Acquire takes the lock for key. It returns ErrSweepInProgress when the lock
// is already held. The returned release func is safe to call once.
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	if l == nil || l.client == nil {
		return func(context.Context) error { return nil }, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("shared: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrSweepInProgress
	}
	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("shared: release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
