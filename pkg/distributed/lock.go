package distributed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Unlock when the lock expired or was taken
// over before release.
var ErrNotHeld = fmt.Errorf("lock not held by this instance")

// unlockScript deletes the key only when it still carries our holder id,
// so a lock that expired and was re-acquired elsewhere is left alone.
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// DistributedLock is a Redis SET NX lock with background renewal. While
// held, the TTL is extended at half-life so a healthy holder never loses
// the lock; a crashed holder loses it after at most one TTL.
type DistributedLock struct {
	client   *redis.Client
	key      string
	holderID string
	ttl      time.Duration

	stopRenew chan struct{}
	stopOnce  sync.Once
}

func NewDistributedLock(client *redis.Client, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client:    client,
		key:       key,
		holderID:  uuid.NewString(),
		ttl:       ttl,
		stopRenew: make(chan struct{}),
	}
}

// Lock blocks until the lock is acquired, polling with a short backoff.
// It gives up after 30 seconds; use LockWithTimeout for a custom bound.
func (l *DistributedLock) Lock(ctx context.Context) error {
	return l.LockWithTimeout(ctx, 30*time.Second)
}

// LockWithTimeout blocks until the lock is acquired or the timeout
// elapses.
func (l *DistributedLock) LockWithTimeout(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		acquired, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out acquiring lock %s", l.key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// TryLock attempts a single acquisition without blocking.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.key, l.holderID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if acquired {
		go l.renew(ctx)
	}
	return acquired, nil
}

// Unlock stops renewal and releases the lock if we still hold it.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.stopRenew) })

	result, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.holderID).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if deleted, ok := result.(int64); !ok || deleted == 0 {
		return ErrNotHeld
	}
	return nil
}

// IsLocked reports whether anyone currently holds the key.
func (l *DistributedLock) IsLocked(ctx context.Context) (bool, error) {
	exists, err := l.client.Exists(ctx, l.key).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (l *DistributedLock) renew(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			current, err := l.client.Get(ctx, l.key).Result()
			if err != nil || current != l.holderID {
				return
			}
			l.client.Expire(ctx, l.key, l.ttl)
		case <-l.stopRenew:
			return
		case <-ctx.Done():
			return
		}
	}
}

// LockManager creates locks under a shared key prefix.
type LockManager struct {
	client *redis.Client
	prefix string
}

func NewLockManager(client *redis.Client, prefix string) *LockManager {
	return &LockManager{client: client, prefix: prefix}
}

// AcquireLock returns an unheld lock for the given key; callers Lock and
// Unlock it themselves.
func (lm *LockManager) AcquireLock(key string, ttl time.Duration) *DistributedLock {
	return NewDistributedLock(lm.client, lm.prefix+key, ttl)
}
