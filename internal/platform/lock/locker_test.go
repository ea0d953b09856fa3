package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewInProcessLocker()

	t.Run("second obtain on same key fails", func(t *testing.T) {
		held, err := locker.Obtain(ctx, "contractor:a", time.Minute)
		require.NoError(t, err)

		_, err = locker.Obtain(ctx, "contractor:a", time.Minute)
		assert.ErrorIs(t, err, ErrNotObtained)

		require.NoError(t, held.Release(ctx))
	})

	t.Run("release makes key obtainable again", func(t *testing.T) {
		held, err := locker.Obtain(ctx, "contractor:b", time.Minute)
		require.NoError(t, err)
		require.NoError(t, held.Release(ctx))

		held, err = locker.Obtain(ctx, "contractor:b", time.Minute)
		require.NoError(t, err)
		require.NoError(t, held.Release(ctx))
	})

	t.Run("distinct keys are independent", func(t *testing.T) {
		a, err := locker.Obtain(ctx, "contractor:c", time.Minute)
		require.NoError(t, err)
		b, err := locker.Obtain(ctx, "contractor:d", time.Minute)
		require.NoError(t, err)

		require.NoError(t, a.Release(ctx))
		require.NoError(t, b.Release(ctx))
	})
}
