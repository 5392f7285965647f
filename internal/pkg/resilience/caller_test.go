package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/pkg/circuit"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func noJitter() float64 { return 0.5 }

func newCaller(t *testing.T, p Policy, threshold int) (*Caller, *recordingSleeper) {
	t.Helper()
	sleeper := &recordingSleeper{}
	cb := circuit.New(circuit.Settings{Name: t.Name(), FailureThreshold: threshold, RecoveryTimeout: time.Minute})
	return NewCaller(cb, p, WithSleeper(sleeper.Sleep), WithRandom(noJitter)), sleeper
}

func TestCallerRetriesThenSucceeds(t *testing.T) {
	c, sleeper := newCaller(t, DefaultPolicy(), 5)
	calls := 0
	out, err := Call(context.Background(), c, func(context.Context) (string, error) {
		calls++
		if calls < 4 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeper.delays)
	assert.Equal(t, circuit.StateClosed, c.Breaker().State())
	assert.Equal(t, 0, c.Breaker().Snapshot().FailureCount)
}

func TestCallerAggregatesLastError(t *testing.T) {
	c, sleeper := newCaller(t, DefaultPolicy(), 5)
	calls := 0
	err := c.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("upstream 502")
	})
	require.Error(t, err)
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Equal(t, "failed after 4 attempts: upstream 502", err.Error())
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeper.delays)
	assert.Equal(t, 4, c.Breaker().Snapshot().FailureCount)
}

func TestCallerAttemptTimeoutCountsAsFailure(t *testing.T) {
	p := DefaultPolicy()
	p.MaxRetries = 2
	p.AttemptTimeout = 20 * time.Millisecond
	c, _ := newCaller(t, p, 5)
	err := c.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 3, c.Breaker().Snapshot().FailureCount)
}

func TestCallerFailFastOnOpenBreaker(t *testing.T) {
	c, sleeper := newCaller(t, DefaultPolicy(), 1)
	c.Breaker().RecordFailure()
	require.Equal(t, circuit.StateOpen, c.Breaker().State())

	var calls atomic.Int32
	err := c.Do(context.Background(), func(context.Context) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, circuit.ErrOpen)
	assert.Equal(t, int32(0), calls.Load())
	assert.Empty(t, sleeper.delays)
}

func TestCallerRetriesThroughOpenBreakerWhenConfigured(t *testing.T) {
	p := DefaultPolicy()
	p.FailFastOnOpen = false
	c, sleeper := newCaller(t, p, 1)
	c.Breaker().RecordFailure()

	calls := 0
	err := c.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 4, exhausted.Attempts)
	assert.ErrorIs(t, err, circuit.ErrOpen)
	assert.Zero(t, calls)
	assert.Len(t, sleeper.delays, 3)
}

func TestCallerStopsOnCancellation(t *testing.T) {
	cb := circuit.New(circuit.Settings{Name: "cancel"})
	c := NewCaller(cb, DefaultPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- c.Do(ctx, func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	<-started
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not stop the caller")
	}
	assert.Equal(t, 0, cb.Snapshot().FailureCount)
}

func TestBackoffBounds(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name    string
		attempt int
		r       float64
		want    time.Duration
	}{
		{"first", 0, 0.5, time.Second},
		{"doubling", 2, 0.5, 4 * time.Second},
		{"capped", 6, 0.5, 10 * time.Second},
		{"low jitter", 0, 0, 800 * time.Millisecond},
		{"high jitter capped", 5, 1, 12 * time.Second},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, backoff(p, tc.attempt, tc.r))
		})
	}
}
