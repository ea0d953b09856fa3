// Package lock provides per-contractor advisory locking so that compliance
// recomputation, payment gating, and sweep runs never interleave for the
// same contractor across service instances.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"

	"paygate/internal/platform/redis"
)

// ErrNotObtained is returned when another holder already owns the key.
// Callers decide whether to wait, fail, or skip; the daily sweep skips.
var ErrNotObtained = errors.New("lock not obtained")

// Lock is a held advisory lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker obtains advisory locks by key.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedisLocker backs Locker with Redis SET NX via bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker wraps the shared Redis client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(client.Client)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, err
	}
	return redisLock{lock: lock}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

func (l redisLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

// InProcessLocker is the fallback when Redis is not configured. It gives the
// same try-lock semantics within a single process.
type InProcessLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewInProcessLocker() *InProcessLocker {
	return &InProcessLocker{held: make(map[string]struct{})}
}

func (l *InProcessLocker) Obtain(_ context.Context, key string, _ time.Duration) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrNotObtained
	}
	l.held[key] = struct{}{}
	return inProcessLock{locker: l, key: key}, nil
}

type inProcessLock struct {
	locker *InProcessLocker
	key    string
}

func (l inProcessLock) Release(_ context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	delete(l.locker.held, l.key)
	return nil
}
