package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sentinel/internal/account"
	"sentinel/internal/analysis/veto"
	"sentinel/internal/audit"
	"sentinel/internal/debate"
	"sentinel/internal/decision"
	"sentinel/internal/market"
	"sentinel/internal/pkg/decimalx"
	"sentinel/internal/retrieval"
)

// CooldownStore reports the last executed trade per symbol.
type CooldownStore interface {
	LastTradeTime(ctx context.Context, symbol string) (time.Time, bool, error)
}

type Analyzer interface {
	Analyze(snap market.Snapshot) veto.Result
}

// Enricher fills indicator fields missing from a snapshot.
type Enricher interface {
	Enrich(snap market.Snapshot) market.Snapshot
}

type Notifier interface {
	SendText(ctx context.Context, text string) error
}

// Outcome summarises one evaluation for monitors and metrics.
type Outcome struct {
	TraceID            string          `json:"trace_id"`
	At                 time.Time       `json:"at"`
	Symbol             string          `json:"symbol"`
	Timeframe          string          `json:"timeframe"`
	Stage              string          `json:"stage"`
	Action             decision.Action `json:"action"`
	Confidence         float64         `json:"confidence_score"`
	Winner             debate.Side     `json:"debate_winner,omitempty"`
	ProConfidence      float64         `json:"pro_confidence"`
	ConConfidence      float64         `json:"con_confidence"`
	Tier1Contribution  float64         `json:"tier1_contribution"`
	DebateContribution float64         `json:"tier3_contribution"`
	VetoActive         bool            `json:"veto_active"`
	VetoReason         string          `json:"veto_reason,omitempty"`
	Reason             string          `json:"reasoning"`
	Entry              float64         `json:"entry_price"`
	StopLoss           float64         `json:"stop_loss"`
	TakeProfit         float64         `json:"take_profit"`
	Duration           time.Duration   `json:"duration"`
}

// Observer is called synchronously after every evaluation and must not
// block.
type Observer interface {
	ObserveEvaluation(o Outcome)
}

// Deps are the collaborators of a Judge. Analyzer, Pro and Con are
// required; the rest may be nil.
type Deps struct {
	Analyzer  Analyzer
	Enricher  Enricher
	Retriever retrieval.Retriever
	Pro       debate.Agent
	Con       debate.Agent
	Arbiter   Arbiter
	Accounts  account.Directory
	Cooldown  CooldownStore
	Hooks     *audit.Dispatcher
	Notifier  Notifier
	Observers []Observer
	Now       func() time.Time
	NewID     func() string
}

const (
	ModeDebate = "debate"
	ModeLLM    = "llm"

	TrendConceptQuery    = "Trend Following Rules"
	ReversalConceptQuery = "Reversal Rules"
)

// Params are the tunables of the decision pipeline.
type Params struct {
	CooldownMinutes int
	HistoryK        int
	ConceptK        int
	ArbitrationMode string
	DebateMargin    float64
	StopLossPct     decimal.Decimal
	TakeProfitPct   decimal.Decimal
	MinStopPips     int
	PipSize         decimal.Decimal
	RiskMode        account.RiskMode
	// DefaultAccount is used for snapshots without an account id.
	DefaultAccount string
}

func DefaultParams() Params {
	return Params{
		CooldownMinutes: 15,
		HistoryK:        3,
		ConceptK:        2,
		ArbitrationMode: ModeDebate,
		DebateMargin:    debate.DefaultMargin,
		StopLossPct:     decimalx.MustParse("0.01"),
		TakeProfitPct:   decimalx.MustParse("0.02"),
		MinStopPips:     10,
		PipSize:         decimalx.MustParse("0.0001"),
		RiskMode:        account.ModeBalanced,
		DefaultAccount:  account.DefaultAccountID,
	}
}

func (p Params) normalized() Params {
	def := DefaultParams()
	if p.CooldownMinutes < 0 {
		p.CooldownMinutes = 0
	}
	if p.HistoryK <= 0 {
		p.HistoryK = def.HistoryK
	}
	if p.ConceptK <= 0 {
		p.ConceptK = def.ConceptK
	}
	if p.ArbitrationMode == "" {
		p.ArbitrationMode = def.ArbitrationMode
	}
	if p.DebateMargin <= 0 {
		p.DebateMargin = def.DebateMargin
	}
	if !p.StopLossPct.IsPositive() {
		p.StopLossPct = def.StopLossPct
	}
	if !p.TakeProfitPct.IsPositive() {
		p.TakeProfitPct = def.TakeProfitPct
	}
	if p.MinStopPips < 0 {
		p.MinStopPips = 0
	}
	if !p.PipSize.IsPositive() {
		p.PipSize = def.PipSize
	}
	if p.RiskMode == "" {
		p.RiskMode = def.RiskMode
	}
	if p.DefaultAccount == "" {
		p.DefaultAccount = def.DefaultAccount
	}
	return p
}

func (p Params) validate() error {
	switch p.ArbitrationMode {
	case ModeDebate, ModeLLM:
	default:
		return fmt.Errorf("unknown arbitration mode %q", p.ArbitrationMode)
	}
	if _, err := account.ParseRiskMode(string(p.RiskMode)); err != nil {
		return err
	}
	return nil
}
