// Package monitor keeps the most recent evaluations in memory for the API.
package monitor

import (
	"sort"
	"sync"
	"time"

	"sentinel/internal/decision"
	"sentinel/internal/judge"
	"sentinel/internal/pkg/symbol"
)

const DefaultCapacity = 200

// Stats aggregates every evaluation seen since start, not only the ones
// still in the ring.
type Stats struct {
	Total          int                     `json:"total"`
	ByAction       map[decision.Action]int `json:"by_action"`
	ByStage        map[string]int          `json:"by_stage"`
	Vetoes         int                     `json:"vetoes"`
	AvgConfidence  float64                 `json:"avg_confidence"`
	AvgDurationMS  float64                 `json:"avg_duration_ms"`
	LastEvaluation *time.Time              `json:"last_evaluation,omitempty"`
}

type Monitor struct {
	mu    sync.RWMutex
	ring  []judge.Outcome
	next  int
	full  bool
	last  map[string]judge.Outcome
	stats Stats

	confSum float64
	durSum  time.Duration
}

func New(capacity int) *Monitor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Monitor{
		ring: make([]judge.Outcome, capacity),
		last: make(map[string]judge.Outcome),
		stats: Stats{
			ByAction: make(map[decision.Action]int),
			ByStage:  make(map[string]int),
		},
	}
}

func (m *Monitor) ObserveEvaluation(o judge.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ring[m.next] = o
	m.next = (m.next + 1) % len(m.ring)
	if m.next == 0 {
		m.full = true
	}
	if sym := symbol.Normalize(o.Symbol); sym != "" {
		m.last[sym] = o
	}

	m.stats.Total++
	m.stats.ByAction[o.Action]++
	m.stats.ByStage[o.Stage]++
	if o.VetoActive {
		m.stats.Vetoes++
	}
	m.confSum += o.Confidence
	m.durSum += o.Duration
	at := o.At
	m.stats.LastEvaluation = &at
}

// Recent returns up to limit outcomes, newest first. limit <= 0 means all.
func (m *Monitor) Recent(limit int) []judge.Outcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := m.next
	if m.full {
		n = len(m.ring)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]judge.Outcome, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.ring)) % len(m.ring)
		out = append(out, m.ring[idx])
	}
	return out
}

// Last returns the latest outcome per symbol, sorted by symbol.
func (m *Monitor) Last() []judge.Outcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]judge.Outcome, 0, len(m.last))
	for _, o := range m.last {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (m *Monitor) LastFor(sym string) (judge.Outcome, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.last[symbol.Normalize(sym)]
	return o, ok
}

func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.stats
	s.ByAction = make(map[decision.Action]int, len(m.stats.ByAction))
	for k, v := range m.stats.ByAction {
		s.ByAction[k] = v
	}
	s.ByStage = make(map[string]int, len(m.stats.ByStage))
	for k, v := range m.stats.ByStage {
		s.ByStage[k] = v
	}
	if s.Total > 0 {
		s.AvgConfidence = m.confSum / float64(s.Total)
		s.AvgDurationMS = float64(m.durSum.Microseconds()) / 1000 / float64(s.Total)
	}
	return s
}
