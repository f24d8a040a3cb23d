package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, time.Minute), mr
}

func TestRedisStore_LockIsExclusiveUntilReleased(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	ok, err := s.TryLock(ctx, "orders:1", "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryLock(ctx, "orders:1", "k")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.TryLock(ctx, "orders:2", "k")
	require.NoError(t, err)
	assert.True(t, ok, "scopes are independent")

	require.NoError(t, s.Release(ctx, "orders:1", "k"))
	ok, err = s.TryLock(ctx, "orders:1", "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_RememberRecall(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	_, found, err := s.Recall(ctx, "orders:1", "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Remember(ctx, "orders:1", "k", "42"))
	v, found, err := s.Recall(ctx, "orders:1", "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "42", v)

	mr.FastForward(2 * time.Minute)
	_, found, err = s.Recall(ctx, "orders:1", "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_DefaultTTL(t *testing.T) {
	s := NewRedisStore(nil, 0)
	assert.Equal(t, 24*time.Hour, s.ttl)
	assert.Equal(t, DefaultLockTTL, s.lockTTL)

	s = NewRedisStore(nil, 10*time.Second)
	assert.Equal(t, 10*time.Second, s.lockTTL, "a lock never outlives the mapping")
}

func TestRedisStore_AbandonedLockExpiresBeforeMapping(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	ok, err := s.TryLock(ctx, "orders:1", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, DefaultLockTTL, mr.TTL(lockKey("orders:1", "k")))

	require.NoError(t, s.Remember(ctx, "orders:1", "k", "42"))
	assert.Equal(t, time.Minute, mr.TTL(mapKey("orders:1", "k")))

	mr.FastForward(DefaultLockTTL + time.Second)
	ok, err = s.TryLock(ctx, "orders:1", "k")
	require.NoError(t, err)
	assert.True(t, ok, "holder died without releasing")

	v, found, err := s.Recall(ctx, "orders:1", "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "42", v)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
