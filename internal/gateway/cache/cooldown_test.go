package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memKV) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

type mockSource struct{ mock.Mock }

func (m *mockSource) LastTradeTime(ctx context.Context, symbol string) (time.Time, bool, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func TestCooldownMarkAndRead(t *testing.T) {
	ctx := context.Background()
	store := newMemKV()
	c := newCooldown(store, "", time.Hour, nil)
	at := time.Date(2025, 3, 10, 11, 55, 0, 0, time.UTC)

	_, ok, err := c.LastTradeTime(ctx, "eurusd")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.MarkTrade(ctx, "eurusd", at))
	assert.Equal(t, time.Hour, store.ttls["sentinel:cooldown:EURUSD"])

	got, ok, err := c.LastTradeTime(ctx, "EURUSD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(got))
}

func TestCooldownFallbackWarmsCache(t *testing.T) {
	ctx := context.Background()
	store := newMemKV()
	src := &mockSource{}
	at := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	src.On("LastTradeTime", mock.Anything, "XAUUSD").Return(at, true, nil).Once()
	c := newCooldown(store, "desk", 0, src)

	got, ok, err := c.LastTradeTime(ctx, "XAUUSD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(got))
	assert.Contains(t, store.data, "desk:cooldown:XAUUSD")

	// second read is served from redis
	_, ok, err = c.LastTradeTime(ctx, "XAUUSD")
	require.NoError(t, err)
	assert.True(t, ok)
	src.AssertExpectations(t)
}

func TestCooldownErrors(t *testing.T) {
	ctx := context.Background()
	store := newMemKV()
	c := newCooldown(store, "", 0, nil)

	store.err = errors.New("connection refused")
	_, _, err := c.LastTradeTime(ctx, "EURUSD")
	assert.ErrorContains(t, err, "redis get: connection refused")

	store.err = nil
	store.data["sentinel:cooldown:EURUSD"] = "garbage"
	_, _, err = c.LastTradeTime(ctx, "EURUSD")
	assert.ErrorContains(t, err, "garbage")
}
