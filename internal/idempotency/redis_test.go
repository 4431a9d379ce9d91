package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGuard(t *testing.T, ttl time.Duration) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisGuard(client, ttl), mr
}

func TestClaimOnlyOnce(t *testing.T) {
	guard, mr := setupGuard(t, time.Hour)
	ctx := context.Background()

	ok, err := guard.Claim(ctx, "1:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("idempotency:1:abc"))

	ok, err = guard.Claim(ctx, "1:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = guard.Claim(ctx, "2:abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClaimExpires(t *testing.T) {
	guard, mr := setupGuard(t, time.Minute)
	ctx := context.Background()

	_, err := guard.Claim(ctx, "k")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	ok, err := guard.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseFreesKey(t *testing.T) {
	guard, _ := setupGuard(t, time.Hour)
	ctx := context.Background()

	_, err := guard.Claim(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx, "k"))

	ok, err := guard.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClaimFailsWhenRedisDown(t *testing.T) {
	guard, mr := setupGuard(t, time.Hour)
	mr.Close()

	_, err := guard.Claim(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())
}
