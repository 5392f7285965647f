// Package resilience layers bounded retries with jittered backoff on top of a
// circuit breaker. Every call to an external reasoning provider goes through a
// Caller.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"sentinel/internal/logger"
	"sentinel/internal/pkg/circuit"
)

type Policy struct {
	// MaxRetries counts attempts after the first one.
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
	// Jitter is the fractional spread applied to each backoff, 0.2 = ±20%.
	Jitter float64
	// FailFastOnOpen stops retrying as soon as the breaker rejects a call.
	FailFastOnOpen bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		MaxDelay:       10 * time.Second,
		AttemptTimeout: 30 * time.Second,
		Jitter:         0.2,
		FailFastOnOpen: true,
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxRetries <= 0 {
		p.MaxRetries = def.MaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = def.AttemptTimeout
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	return p
}

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

type Sleeper func(ctx context.Context, d time.Duration) error

type Option func(*Caller)

func WithLimiter(l *rate.Limiter) Option {
	return func(c *Caller) { c.limiter = l }
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Caller) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithRandom replaces the jitter source. fn must return values in [0,1).
func WithRandom(fn func() float64) Option {
	return func(c *Caller) {
		if fn != nil {
			c.random = fn
		}
	}
}

// Caller is safe for concurrent use; the breaker it wraps is shared by every
// in-flight call.
type Caller struct {
	breaker *circuit.CircuitBreaker
	policy  Policy
	limiter *rate.Limiter
	sleep   Sleeper
	random  func() float64
}

func NewCaller(breaker *circuit.CircuitBreaker, policy Policy, opts ...Option) *Caller {
	if breaker == nil {
		breaker = circuit.New(circuit.Settings{Name: "resilient-caller"})
	}
	c := &Caller{
		breaker: breaker,
		policy:  policy.normalized(),
		sleep:   sleepContext,
		random:  rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Caller) Breaker() *circuit.CircuitBreaker { return c.breaker }

func (c *Caller) Policy() Policy { return c.policy }

// Do runs fn with a per-attempt deadline until it succeeds or the retry
// budget is spent. Cancellation of ctx ends the loop immediately and is not
// recorded as a provider failure.
func (c *Caller) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var last error
	attempts := 0
	total := c.policy.MaxRetries + 1
	for attempt := 0; attempt < total; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 0 {
			if err := c.sleep(ctx, c.Backoff(attempt-1)); err != nil {
				return err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}
		attempts++
		if err := c.breaker.Allow(); err != nil {
			last = err
			if c.policy.FailFastOnOpen {
				break
			}
			logger.Debugf("%s rejected attempt %d/%d: %v", c.breaker.Name(), attempt+1, total, err)
			continue
		}
		err := c.attempt(ctx, fn)
		if err == nil {
			c.breaker.RecordSuccess()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.breaker.RecordFailure()
		last = err
		logger.Warnf("%s attempt %d/%d failed: %v", c.breaker.Name(), attempt+1, total, err)
	}
	return &ExhaustedError{Attempts: attempts, Last: last}
}

func (c *Caller) attempt(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	err = fn(attemptCtx)
	if err == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("attempt timed out after %s", c.policy.AttemptTimeout)
	}
	return err
}

// Backoff returns the delay slept after the given zero-based attempt:
// min(base·2^attempt, max) spread by the jitter fraction.
func (c *Caller) Backoff(attempt int) time.Duration {
	return backoff(c.policy, attempt, c.random())
}

func backoff(p Policy, attempt int, r float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	delay += delay * p.Jitter * (2*r - 1)
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Call is Do for functions that produce a value.
func Call[T any](ctx context.Context, c *Caller, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := c.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
