package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wintergreen/academia-backend/config"
)

func TestCountInWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, ttl, err := CountInWindow(ctx, rdb, "rl:test", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	}

	mr.FastForward(time.Minute + time.Second)
	n, _, err := CountInWindow(ctx, rdb, "rl:test", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "window resets after expiry")
}

func TestCountInWindow_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	_, _, err := CountInWindow(context.Background(), rdb, "rl:test", time.Minute)
	assert.Error(t, err)
}

func TestInit(t *testing.T) {
	require.NoError(t, Init(&config.RedisConfig{}))
	assert.Nil(t, GetClient(), "empty host keeps redis disabled")

	mr := miniredis.RunT(t)
	require.NoError(t, Init(&config.RedisConfig{Host: mr.Host(), Port: mr.Port()}))
	assert.NotNil(t, GetClient())
	require.NoError(t, Close())
	assert.Nil(t, GetClient())
}
