// Package metrics exposes evaluation, breaker and provider metrics on a
// per-instance prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sentinel/internal/judge"
	"sentinel/internal/pkg/circuit"
)

const namespace = "sentinel"

// Recorder implements judge.Observer and provider.CallObserver.
type Recorder struct {
	reg *prometheus.Registry

	evaluations  *prometheus.CounterVec
	evalDuration *prometheus.HistogramVec
	confidence   prometheus.Histogram
	vetoes       prometheus.Counter

	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec

	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec

	hookFailures *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Evaluations by resulting action and the stage that decided them.",
		}, []string{"action", "stage"}),
		evalDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of one evaluation.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		confidence: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "signal_confidence",
			Help:      "Confidence of emitted signals.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		vetoes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier1_vetoes_total",
			Help:      "Evaluations where the tier 1 veto was active.",
		}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "0 closed, 1 open, 2 half-open.",
		}, []string{"breaker"}),
		breakerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Breaker state transitions.",
		}, []string{"breaker", "from", "to"}),
		providerCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "LLM generations by provider, purpose and result.",
		}, []string{"provider", "purpose", "result"}),
		providerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "LLM generation latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		hookFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hook_failures_total",
			Help:      "Failed audit and notification hooks.",
		}, []string{"hook"}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

func (r *Recorder) ObserveEvaluation(o judge.Outcome) {
	r.evaluations.WithLabelValues(string(o.Action), o.Stage).Inc()
	r.evalDuration.WithLabelValues(o.Stage).Observe(o.Duration.Seconds())
	r.confidence.Observe(o.Confidence)
	if o.VetoActive {
		r.vetoes.Inc()
	}
}

func (r *Recorder) ObserveProviderCall(provider, purpose string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.providerCalls.WithLabelValues(provider, purpose, result).Inc()
	r.providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// TrackBreaker publishes the current state of cb. Transitions are reported
// through BreakerStateChanged.
func (r *Recorder) TrackBreaker(cb *circuit.CircuitBreaker) {
	r.breakerState.WithLabelValues(cb.Name()).Set(float64(cb.State()))
}

func (r *Recorder) BreakerStateChanged(name string, from, to circuit.State) {
	r.breakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	r.breakerState.WithLabelValues(name).Set(float64(to))
}

func (r *Recorder) HookFailed(hook string, _ error) {
	r.hookFailures.WithLabelValues(hook).Inc()
}
