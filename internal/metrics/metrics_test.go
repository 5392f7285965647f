package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/decision"
	"sentinel/internal/judge"
	"sentinel/internal/pkg/circuit"
)

func TestObserveEvaluation(t *testing.T) {
	r := New()
	r.ObserveEvaluation(judge.Outcome{Action: decision.ActionBuy, Stage: "signal", Confidence: 0.74, Duration: time.Second})
	r.ObserveEvaluation(judge.Outcome{Action: decision.ActionHold, Stage: "tier1", VetoActive: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.evaluations.WithLabelValues("BUY", "signal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.evaluations.WithLabelValues("HOLD", "tier1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.vetoes))
}

func TestProviderAndHookCounters(t *testing.T) {
	r := New()
	r.ObserveProviderCall("openai:gpt", "debate_pro", 200*time.Millisecond, nil)
	r.ObserveProviderCall("openai:gpt", "debate_pro", time.Second, errors.New("boom"))
	r.HookFailed("audit:0", errors.New("disk full"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.providerCalls.WithLabelValues("openai:gpt", "debate_pro", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.providerCalls.WithLabelValues("openai:gpt", "debate_pro", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.hookFailures.WithLabelValues("audit:0")))
}

func TestBreakerGauge(t *testing.T) {
	r := New()
	cb := circuit.New(circuit.Settings{Name: "llm", FailureThreshold: 1, RecoveryTimeout: time.Minute})
	cb.SetStateChangeHandler(r.BreakerStateChanged)
	r.TrackBreaker(cb)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.breakerState.WithLabelValues("llm")))

	cb.RecordFailure()
	// the handler runs asynchronously
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(r.breakerState.WithLabelValues("llm")) == float64(circuit.StateOpen)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.breakerTransitions.WithLabelValues("llm", "CLOSED", "OPEN")))
}

func TestHandlerServesRegistry(t *testing.T) {
	r := New()
	r.ObserveEvaluation(judge.Outcome{Action: decision.ActionHold, Stage: "cooldown"})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sentinel_evaluations_total{action="HOLD",stage="cooldown"} 1`)
}
