package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sentinel/internal/logger"
)

const DefaultHookTimeout = 10 * time.Second

// Dispatcher runs sink writes and other post-decision hooks in the
// background. Close waits for everything already started.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	onError func(hook string, err error)

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultHookTimeout
	}
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Dispatcher{sinks: kept, timeout: timeout}
}

// OnError registers a failure hook, typically a metrics counter. Set it
// before the first dispatch.
func (d *Dispatcher) OnError(fn func(hook string, err error)) {
	d.onError = fn
}

func (d *Dispatcher) Sinks() int { return len(d.sinks) }

// Dispatch writes rec to every sink asynchronously.
func (d *Dispatcher) Dispatch(rec Record) {
	for _, s := range d.sinks {
		sink := s
		d.Go(fmt.Sprintf("audit:%T", sink), func(ctx context.Context) error {
			return sink.LogDecision(ctx, rec)
		})
	}
}

// Go runs fn in the background under the hook timeout. Calls after Close
// are dropped.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		logger.Warnf("hook %s dropped: dispatcher closed", name)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.fail(name, fmt.Errorf("panic: %v", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.fail(name, err)
		}
	}()
}

func (d *Dispatcher) fail(name string, err error) {
	logger.Warnf("hook %s failed: %v", name, err)
	if d.onError != nil {
		d.onError(name, err)
	}
}

// Close stops accepting hooks and waits for in-flight ones or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
