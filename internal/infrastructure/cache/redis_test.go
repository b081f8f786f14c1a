package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisCache_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping 127.0.0.1:1")
}

// Runs against a real server only when TEST_REDIS_ADDR is set.
func TestRedisCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, KeyPrefix: "scanner-agent-test:"})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "token:op", []byte("abc"), time.Minute))
	v, err := c.Get(ctx, "token:op")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), v)

	require.NoError(t, c.Delete(ctx, "token:op"))
	_, err = c.Get(ctx, "token:op")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	// zero ttl deletes
	require.NoError(t, c.Set(ctx, "token:op", []byte("abc"), 0))
	_, err = c.Get(ctx, "token:op")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}
