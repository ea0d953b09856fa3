//go:build integration

package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"paygate/internal/platform/redis"
	"paygate/pkg/testutil/containers"
)

func newRedisLocker(t *testing.T) *RedisLocker {
	t.Helper()
	container := containers.NewRedisContainer(t)
	return NewRedisLocker(&redis.Client{Client: container.Client})
}

func TestRedisLockerMutualExclusion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	locker := newRedisLocker(t)

	held, err := locker.Obtain(ctx, "paygate:sweep:contractor-1", time.Minute)
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, "paygate:sweep:contractor-1", time.Minute)
	require.ErrorIs(t, err, ErrNotObtained)

	other, err := locker.Obtain(ctx, "paygate:sweep:contractor-2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, held.Release(ctx))

	reacquired, err := locker.Obtain(ctx, "paygate:sweep:contractor-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, reacquired.Release(ctx))
}

func TestRedisLockerExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	locker := newRedisLocker(t)

	held, err := locker.Obtain(ctx, "paygate:sweep:contractor-1", 100*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)

	reacquired, err := locker.Obtain(ctx, "paygate:sweep:contractor-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, reacquired.Release(ctx))

	// Releasing after expiry is a no-op, not an error.
	require.NoError(t, held.Release(ctx))
}
