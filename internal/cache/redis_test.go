package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedUser struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *Cache) {
	s := miniredis.RunT(t)
	c := New(redis.NewClient(&redis.Options{Addr: s.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return s, c
}

func TestAside_MissThenHit(t *testing.T) {
	s, c := setupMiniredis(t)
	ctx := context.Background()
	calls := 0

	fetch := func(dest *cachedUser) func() error {
		return func() error {
			calls++
			*dest = cachedUser{ID: "alice", Nickname: "Alice"}
			return nil
		}
	}

	var first cachedUser
	require.NoError(t, c.Aside(ctx, UserKey("alice"), &first, UserTTL, fetch(&first)))
	assert.Equal(t, "Alice", first.Nickname)
	assert.True(t, s.Exists("user:alice"))

	var second cachedUser
	require.NoError(t, c.Aside(ctx, UserKey("alice"), &second, UserTTL, fetch(&second)))
	assert.Equal(t, "Alice", second.Nickname)
	assert.Equal(t, 1, calls)

	s.FastForward(UserTTL + time.Second)
	assert.False(t, s.Exists("user:alice"))
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	s, c := setupMiniredis(t)
	boom := errors.New("boom")

	var dest cachedUser
	err := c.Aside(context.Background(), UserKey("bob"), &dest, UserTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Exists("user:bob"))
}

func TestAside_RedisDownFallsBackToFetch(t *testing.T) {
	s, c := setupMiniredis(t)
	s.Close()

	var dest cachedUser
	err := c.Aside(context.Background(), UserKey("carol"), &dest, UserTTL, func() error {
		dest.ID = "carol"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "carol", dest.ID)
}

func TestInvalidateUser(t *testing.T) {
	s, c := setupMiniredis(t)
	require.NoError(t, s.Set("user:dave", `{"id":"dave"}`))

	c.InvalidateUser(context.Background(), "dave")
	assert.False(t, s.Exists("user:dave"))
}

func TestDisabledCache(t *testing.T) {
	var nilCache *Cache
	assert.False(t, nilCache.Enabled())
	assert.NoError(t, nilCache.Ping(context.Background()))

	c, err := Connect(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	calls := 0
	var dest cachedUser
	for i := 0; i < 2; i++ {
		require.NoError(t, c.Aside(context.Background(), "k", &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
	c.Invalidate(context.Background(), "k")
	assert.NoError(t, c.Close())
}

func TestConnect(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := Connect(context.Background(), "redis://"+s.Addr()+"/0")
	require.NoError(t, err)
	assert.True(t, c.Enabled())
	assert.NoError(t, c.Ping(context.Background()))
	_ = c.Close()

	_, err = Connect(context.Background(), "redis://%zz")
	assert.Error(t, err)
}
