package cache

import (
	"context"
	"testing"
	"time"

	"auralis/core/ratelimit"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTestRedis(t *testing.T) {
	_, client := newTestClient(t)
	require.NoError(t, TestRedis(context.Background(), client))
	assert.Error(t, TestRedis(context.Background(), nil))
}

func TestPresenceAddLookupRemove(t *testing.T) {
	_, client := newTestClient(t)
	p := NewRedisPresence(client)
	ctx := context.Background()

	require.NoError(t, p.Add(ctx, "user_b", "conn-1"))
	require.NoError(t, p.Add(ctx, "user_a", "conn-2"))

	conn, ok, err := p.Lookup(ctx, "user_b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "conn-1", conn)

	online, err := p.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_a", "user_b"}, online)

	removed, err := p.Remove(ctx, "user_b", "conn-1")
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok, err = p.Lookup(ctx, "user_b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPresenceRemoveIgnoresStaleConnection(t *testing.T) {
	_, client := newTestClient(t)
	p := NewRedisPresence(client)
	ctx := context.Background()

	require.NoError(t, p.Add(ctx, "user_a", "old"))
	require.NoError(t, p.Add(ctx, "user_a", "new"))

	removed, err := p.Remove(ctx, "user_a", "old")
	require.NoError(t, err)
	assert.False(t, removed)

	conn, ok, err := p.Lookup(ctx, "user_a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", conn)
}

func TestPresenceOnlineDropsExpiredHeartbeat(t *testing.T) {
	mr, client := newTestClient(t)
	p := NewRedisPresence(client)
	ctx := context.Background()

	require.NoError(t, p.Add(ctx, "user_a", "conn-a"))
	require.NoError(t, p.Add(ctx, "user_b", "conn-b"))

	mr.FastForward(presenceTTL / 2)
	require.NoError(t, p.Touch(ctx, "user_a", "conn-a"))
	mr.FastForward(presenceTTL/2 + time.Second)

	online, err := p.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_a"}, online)

	_, ok, err := p.Lookup(ctx, "user_b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPresenceActivities(t *testing.T) {
	_, client := newTestClient(t)
	p := NewRedisPresence(client)
	ctx := context.Background()

	require.NoError(t, p.Add(ctx, "user_a", "c"))
	require.NoError(t, p.SetActivity(ctx, "user_a", "Playing Caruso by Lucio Dalla"))

	acts, err := p.Activities(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"user_a": "Playing Caruso by Lucio Dalla"}, acts)

	_, err = p.Remove(ctx, "user_a", "c")
	require.NoError(t, err)
	acts, err = p.Activities(ctx)
	require.NoError(t, err)
	assert.Empty(t, acts)
}

func TestRedisRateLimitStoreSharesBudget(t *testing.T) {
	mr, client := newTestClient(t)
	store, err := NewRateLimitStore(client)
	require.NoError(t, err)
	ctx := context.Background()

	// 两个实例共用同一个 Redis
	first := ratelimit.New(store, ratelimit.Auth)
	second := ratelimit.New(store, ratelimit.Auth)
	for i := 0; i < 5; i++ {
		l := first
		if i%2 == 1 {
			l = second
		}
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := second.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)

	mr.FastForward(ratelimit.Auth.Window + time.Second)

	res, err = first.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
