package circuit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sentinel/internal/logger"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrOpen is matched by every rejection returned while the breaker is open.
var ErrOpen = errors.New("circuit open")

// OpenError reports a rejected call and how long until the next probe.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit %s open, retry in %s", e.Name, e.RetryAfter.Round(time.Second))
}

func (e *OpenError) Is(target error) bool { return target == ErrOpen }

const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultRecoveryTimeout  = 60 * time.Second
)

type Settings struct {
	Name             string
	FailureThreshold int
	SuccessThreshold int
	RecoveryTimeout  time.Duration
	// Now is the clock used for lastFailureAt and the recovery window.
	Now func() time.Time
}

func (s Settings) withDefaults() Settings {
	if s.Name == "" {
		s.Name = "default"
	}
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = DefaultFailureThreshold
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = DefaultSuccessThreshold
	}
	if s.RecoveryTimeout <= 0 {
		s.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// Snapshot is a point-in-time copy of the breaker counters.
type Snapshot struct {
	Name             string     `json:"name"`
	State            State      `json:"state"`
	FailureCount     int        `json:"failure_count"`
	SuccessCount     int        `json:"success_count"`
	FailureThreshold int        `json:"failure_threshold"`
	SuccessThreshold int        `json:"success_threshold"`
	RecoveryTimeout  string     `json:"recovery_timeout"`
	LastFailureAt    *time.Time `json:"last_failure_at,omitempty"`
}

// CircuitBreaker is safe for concurrent use; every transition happens under mu.
type CircuitBreaker struct {
	mu            sync.Mutex
	cfg           Settings
	state         State
	failures      int
	successes     int
	lastFailure   time.Time
	onStateChange func(name string, from, to State)
}

func New(cfg Settings) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg.withDefaults(), state: StateClosed}
}

func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

func (cb *CircuitBreaker) SetStateChangeHandler(handler func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = handler
}

// Allow reports whether a call may proceed. An open breaker whose recovery
// window has elapsed moves to half-open and admits the call.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}
	elapsed := cb.cfg.Now().Sub(cb.lastFailure)
	if elapsed >= cb.cfg.RecoveryTimeout {
		cb.successes = 0
		cb.transition(StateHalfOpen)
		return nil
	}
	return &OpenError{Name: cb.cfg.Name, RetryAfter: cb.cfg.RecoveryTimeout - elapsed}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state != StateHalfOpen {
		return
	}
	cb.successes++
	if cb.successes >= cb.cfg.SuccessThreshold {
		cb.successes = 0
		cb.transition(StateClosed)
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.cfg.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.successes = 0
		cb.transition(StateOpen)
	}
}

// Execute runs fn under the breaker. A rejected call never invokes fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.Allow(); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	snap := Snapshot{
		Name:             cb.cfg.Name,
		State:            cb.state,
		FailureCount:     cb.failures,
		SuccessCount:     cb.successes,
		FailureThreshold: cb.cfg.FailureThreshold,
		SuccessThreshold: cb.cfg.SuccessThreshold,
		RecoveryTimeout:  cb.cfg.RecoveryTimeout.String(),
	}
	if !cb.lastFailure.IsZero() {
		ts := cb.lastFailure
		snap.LastFailureAt = &ts
	}
	return snap
}

// Reset forces the breaker closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.successes = 0
	cb.lastFailure = time.Time{}
	if cb.state != StateClosed {
		cb.transition(StateClosed)
	}
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	logger.Warnf("circuit %s: %s -> %s (failures=%d/%d, recovery=%s)",
		cb.cfg.Name, from, to, cb.failures, cb.cfg.FailureThreshold, cb.cfg.RecoveryTimeout)
	if cb.onStateChange != nil {
		go cb.onStateChange(cb.cfg.Name, from, to)
	}
}
