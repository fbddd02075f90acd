package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, _ := newRedisTestCache(t)
	ctx := context.Background()

	in := cachedAnswer{Text: "a summary", Model: "openai/gpt-4o"}
	require.NoError(t, c.Set(ctx, "k", in, time.Minute))

	var out cachedAnswer
	require.NoError(t, c.Get(ctx, "k", &out))
	assert.Equal(t, in, out)
}

func TestRedisCacheMiss(t *testing.T) {
	c, _ := newRedisTestCache(t)

	var out cachedAnswer
	assert.ErrorIs(t, c.Get(context.Background(), "absent", &out), ErrMiss)
}

func TestRedisCacheTTLExpiry(t *testing.T) {
	c, mr := newRedisTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", cachedAnswer{Text: "x"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	var out cachedAnswer
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)
}

func TestRedisCacheDelete(t *testing.T) {
	c, _ := newRedisTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", cachedAnswer{Text: "x"}, time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	var out cachedAnswer
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)
}

func TestNewRedisCacheInvalidURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url")
	assert.Error(t, err)
}
