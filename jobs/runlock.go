package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock serializes monthly posting runs across worker replicas with a
// SET NX key per task and period. The ledger idempotency key already makes
// concurrent runs safe, the lock just stops them burning the same work twice.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunLock constructs a lock store. ttl bounds how long a crashed run can
// hold a period.
func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunLock{client: client, ttl: ttl}
}

// Acquire takes the lock for one task and period. On success it returns a
// release func; when the lock is held elsewhere it returns acquired=false.
func (l *RunLock) Acquire(ctx context.Context, task, period string) (bool, func(), error) {
	key := fmt.Sprintf("keystone:runlock:%s:%s", task, period)
	ok, err := l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("jobs: acquire run lock %s: %w", key, err)
	}
	if !ok {
		return false, nil, nil
	}
	release := func() {
		// Best effort; the TTL reclaims the key if the delete is lost.
		_ = l.client.Del(context.Background(), key).Err()
	}
	return true, release, nil
}
