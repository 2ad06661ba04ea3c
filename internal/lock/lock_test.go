package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client), mr
}

func TestTryLockIsExclusive(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "department:slug:ops", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "department:slug:ops", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "department:slug:ops", token))

	_, ok, err = locker.TryLock(ctx, "department:slug:ops", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseIgnoresForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, "k", "not-the-owner"))
	assert.True(t, mr.Exists(keyPrefix+"k"))
}

func TestLockExpires(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWithLock(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	called := false
	err := locker.WithLock(ctx, "k", time.Minute, func(ctx context.Context) error {
		called = true
		assert.True(t, mr.Exists(keyPrefix+"k"))
		inner := locker.WithLock(ctx, "k", time.Minute, func(context.Context) error {
			t.Fatalf("nested holder must not run")
			return nil
		})
		assert.True(t, errors.Is(inner, ErrNotAcquired))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, mr.Exists(keyPrefix+"k"))
}

func TestNilLockerRunsDirectly(t *testing.T) {
	var locker *Locker
	called := false
	require.NoError(t, locker.WithLock(context.Background(), "k", time.Minute, func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
	assert.NoError(t, locker.Release(context.Background(), "k", "t"))
}
