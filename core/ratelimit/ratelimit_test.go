package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
)

func TestLimiterBlocksAfterBudget(t *testing.T) {
	l := New(NewMemoryStore(), Auth)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(5), res.Limit)
		assert.Equal(t, int64(4-i), res.Remaining)
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.True(t, res.Reset > 0 && res.Reset <= 15*time.Minute)

	// 其他 IP 不受影响
	res, err = l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestWindowResets(t *testing.T) {
	l := New(NewMemoryStore(), Rule{Name: "t", Limit: 1, Window: time.Second})
	ctx := context.Background()

	res, _ := l.Allow(ctx, "ip")
	assert.True(t, res.Allowed)
	res, _ = l.Allow(ctx, "ip")
	assert.False(t, res.Allowed)

	time.Sleep(1100 * time.Millisecond)
	res, _ = l.Allow(ctx, "ip")
	assert.True(t, res.Allowed)
}

func TestRulesAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	search := New(store, Search)
	play := New(store, Play)

	for i := 0; i < 30; i++ {
		_, _ = search.Allow(ctx, "ip")
	}
	res, _ := search.Allow(ctx, "ip")
	assert.False(t, res.Allowed)

	res, _ = play.Allow(ctx, "ip")
	assert.True(t, res.Allowed)
}

// failingStore 只实现 Get，其他方法不会被 Limiter 调用
type failingStore struct{ limiter.Store }

func (failingStore) Get(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("redis down")
}

func TestStoreErrorAllows(t *testing.T) {
	res, err := New(failingStore{}, API).Allow(context.Background(), "ip")
	assert.Error(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1000), res.Remaining)
}

func TestBudgets(t *testing.T) {
	assert.Equal(t, int64(1000), API.Limit)
	assert.Equal(t, 15*time.Minute, API.Window)
	assert.Equal(t, int64(10), Upload.Limit)
	assert.Equal(t, time.Hour, Upload.Window)
	assert.Equal(t, int64(100), Play.Limit)
}
