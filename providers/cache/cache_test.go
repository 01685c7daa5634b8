package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "key", []byte("value"), time.Minute)

	got, found := c.Get(ctx, "key")
	assert.True(t, found)
	assert.Equal(t, []byte("value"), got)
}

func TestMemoryCache_MissingKey(t *testing.T) {
	c := NewMemoryCache()

	got, found := c.Get(context.Background(), "absent")
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "key", []byte("value"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, found := c.Get(ctx, "key")
	assert.False(t, found)
}

func TestMemoryCache_RejectsNonPositiveTTL(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "key", []byte("value"), 0)

	_, found := c.Get(ctx, "key")
	assert.False(t, found)
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	c.Delete(ctx, "a")
	_, found := c.Get(ctx, "a")
	assert.False(t, found)

	c.Clear(ctx)
	_, found = c.Get(ctx, "b")
	assert.False(t, found)
}

func newTestRedisCache(t *testing.T) (GenericCacheInterface, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	c, err := NewRedisCache(&RedisCacheConfig{
		Addr:         server.Addr(),
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	require.NoError(t, err)
	return c, server
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "key", []byte("value"), time.Minute)

	got, found := c.Get(ctx, "key")
	assert.True(t, found)
	assert.Equal(t, []byte("value"), got)
}

func TestRedisCache_Expiry(t *testing.T) {
	c, server := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "key", []byte("value"), time.Minute)
	server.FastForward(2 * time.Minute)

	_, found := c.Get(ctx, "key")
	assert.False(t, found)
}

func TestRedisCache_Delete(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "key", []byte("value"), time.Minute)
	c.Delete(ctx, "key")

	_, found := c.Get(ctx, "key")
	assert.False(t, found)
}

func TestRedisCache_ConnectFailure(t *testing.T) {
	_, err := NewRedisCache(&RedisCacheConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	assert.Error(t, err)
}
