package provider

import (
	"context"
	"time"

	"sentinel/internal/logger"
	"sentinel/internal/pkg/resilience"
)

// CallObserver receives one event per logical generation.
type CallObserver interface {
	ObserveProviderCall(provider, purpose string, d time.Duration, err error)
}

// Resilient routes every generation through a shared resilience.Caller.
type Resilient struct {
	next     TextGenerator
	caller   *resilience.Caller
	observer CallObserver
}

func NewResilient(next TextGenerator, caller *resilience.Caller, observer CallObserver) *Resilient {
	return &Resilient{next: next, caller: caller, observer: observer}
}

func (r *Resilient) ID() string { return r.next.ID() }

func (r *Resilient) Caller() *resilience.Caller { return r.caller }

func (r *Resilient) Generate(ctx context.Context, p Prompt) (string, error) {
	start := time.Now()
	logger.LogLLMRequest(r.next.ID(), p.Purpose, p.System, p.User, "")
	out, err := resilience.Call(ctx, r.caller, func(ctx context.Context) (string, error) {
		return r.next.Generate(ctx, p)
	})
	if r.observer != nil {
		r.observer.ObserveProviderCall(r.next.ID(), p.Purpose, time.Since(start), err)
	}
	if err != nil {
		logger.Warnf("provider %s %s failed: %v", r.next.ID(), p.Purpose, err)
		return "", err
	}
	logger.LogLLMResponse(r.next.ID(), p.Purpose, out)
	return out, nil
}
