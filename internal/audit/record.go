// Package audit persists and fans out the full context of every decision.
package audit

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sentinel/internal/analysis/veto"
	"sentinel/internal/debate"
	"sentinel/internal/decision"
	"sentinel/internal/market"
)

// Execution is filled only for entry signals.
type Execution struct {
	Lot        decimal.Decimal `json:"lot"`
	StopLoss   decimal.Decimal `json:"sl"`
	TakeProfit decimal.Decimal `json:"tp"`
	RiskAmount decimal.Decimal `json:"risk_amount"`
	RRR        float64         `json:"rrr"`
	RiskMode   string          `json:"risk_mode"`
}

// Record is the decision context handed to sinks. Stages that never ran
// stay nil.
type Record struct {
	TraceID       string               `json:"trace_id"`
	Timestamp     time.Time            `json:"ts"`
	Snapshot      market.Snapshot      `json:"snapshot"`
	Tier          *veto.Result         `json:"tier1,omitempty"`
	Pro           *debate.Analysis     `json:"pro,omitempty"`
	Con           *debate.Analysis     `json:"con,omitempty"`
	Verdict       *debate.Verdict      `json:"verdict,omitempty"`
	ArbiterReason string               `json:"arbiter_reason,omitempty"`
	FinalScore    decimal.Decimal      `json:"final_score"`
	Signal        decision.TradeSignal `json:"signal"`
	Execution     *Execution           `json:"execution,omitempty"`
	Duration      time.Duration        `json:"duration"`
	Error         string               `json:"error,omitempty"`
}

// Sink receives decision records. Implementations must be safe for
// concurrent use.
type Sink interface {
	LogDecision(ctx context.Context, rec Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec Record) error

func (f SinkFunc) LogDecision(ctx context.Context, rec Record) error { return f(ctx, rec) }

func (r Record) tier1Score() float64 {
	if r.Tier == nil {
		return 0
	}
	return r.Tier.Score()
}

func (r Record) tier1Reason() string {
	if r.Tier == nil {
		return ""
	}
	if r.Tier.VetoReason != "" {
		return r.Tier.VetoReason
	}
	return r.Tier.Trend().String()
}

func (r Record) tier3() (decimal.Decimal, string) {
	if r.Verdict == nil {
		return decimal.Zero, r.ArbiterReason
	}
	if r.ArbiterReason != "" {
		return r.Verdict.DebateScore, r.ArbiterReason
	}
	return r.Verdict.DebateScore, r.Verdict.Summary()
}

func agentText(a *debate.Analysis) string {
	if a == nil {
		return ""
	}
	if a.RawText != "" {
		return a.RawText
	}
	return strings.Join(a.KeyPoints, "; ")
}
