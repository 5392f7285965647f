// Package judge is the decision orchestrator: cooldown, Tier-1 veto,
// retrieval, Pro/Con debate, arbitration, sizing and signal assembly.
package judge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/analysis/pattern"
	"sentinel/internal/audit"
	"sentinel/internal/debate"
	"sentinel/internal/decision"
	"sentinel/internal/gateway/notifier"
	"sentinel/internal/logger"
	"sentinel/internal/market"
	"sentinel/internal/pkg/decimalx"
	"sentinel/internal/retrieval"
)

const (
	StageValidation  = "validation"
	StageCooldown    = "cooldown"
	StageTier1       = "tier1"
	StageDebate      = "debate"
	StageArbitration = "arbitration"
	StageSizing      = "sizing"
	StageSignal      = "signal"
	StagePanic       = "panic"
)

// Judge is safe for concurrent Evaluate calls. Per-symbol serialization
// is up to the caller.
type Judge struct {
	deps   Deps
	params Params
	arb    debate.Arbitrator
	hooks  *audit.Dispatcher
	now    func() time.Time
	newID  func() string
}

func New(deps Deps, params Params) (*Judge, error) {
	params = params.normalized()
	if err := params.validate(); err != nil {
		return nil, err
	}
	if deps.Analyzer == nil {
		return nil, errors.New("judge: analyzer is required")
	}
	if deps.Pro == nil || deps.Con == nil {
		return nil, errors.New("judge: pro and con agents are required")
	}
	if params.ArbitrationMode == ModeLLM && deps.Arbiter == nil {
		return nil, errors.New("judge: llm arbitration mode requires an arbiter")
	}
	j := &Judge{
		deps:   deps,
		params: params,
		arb:    debate.NewArbitrator(params.DebateMargin),
		hooks:  deps.Hooks,
		now:    deps.Now,
		newID:  deps.NewID,
	}
	if j.hooks == nil {
		j.hooks = audit.NewDispatcher(0)
	}
	if j.now == nil {
		j.now = time.Now
	}
	if j.newID == nil {
		j.newID = uuid.NewString
	}
	return j, nil
}

func (j *Judge) Params() Params { return j.params }

// Close waits for in-flight audit and notification hooks.
func (j *Judge) Close(ctx context.Context) error {
	return j.hooks.Close(ctx)
}

// evaluation carries the state of one run so the audit record can show
// every stage that was reached.
type evaluation struct {
	rec   audit.Record
	stage string
}

// Evaluate never fails: every error path degrades to a HOLD signal.
func (j *Judge) Evaluate(ctx context.Context, snap market.Snapshot) (sig decision.TradeSignal) {
	start := j.now()
	ev := &evaluation{rec: audit.Record{TraceID: j.newID(), Timestamp: start, Snapshot: snap}}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("judge panic for %s: %v\n%s", snap.Symbol, r, debug.Stack())
			ev.stage = StagePanic
			ev.rec.Error = fmt.Sprintf("panic: %v", r)
			sig = decision.Hold(snap.Symbol, 0, fmt.Sprintf("internal error: %v", r))
		}
		sig.TraceID = ev.rec.TraceID
		j.finish(ev, sig, start)
	}()
	return j.run(ctx, ev)
}

func (j *Judge) run(ctx context.Context, ev *evaluation) decision.TradeSignal {
	snap := ev.rec.Snapshot
	ev.stage = StageValidation
	if strings.TrimSpace(snap.Symbol) == "" || !(snap.Price > 0) || math.IsInf(snap.Price, 0) {
		return j.hold(ev, 0, "invalid snapshot")
	}
	if snap.Timeframe == "" {
		snap.Timeframe = "M15"
	}
	if err := snap.Validate(ctx); err != nil {
		return j.hold(ev, 0, err.Error())
	}

	ev.stage = StageCooldown
	reason, err := j.cooldown(ctx, snap.Symbol)
	if err != nil {
		return j.fail(ev, "cooldown check failed", err)
	}
	if reason != "" {
		return j.hold(ev, 0, reason)
	}

	ev.stage = StageTier1
	if j.deps.Enricher != nil {
		snap = j.deps.Enricher.Enrich(snap)
	}
	ev.rec.Snapshot = snap
	tier := j.deps.Analyzer.Analyze(snap)
	ev.rec.Tier = &tier
	intent := snap.Side.Direction()
	// a veto on the requested side still runs the debate so the audit
	// record carries both analyses; the arbitrator forces HOLD below
	sideVetoed, sideReason := tier.VetoFor(intent)
	if sideVetoed {
		logger.Infof("%s %s vetoed by tier 1: %s", snap.Symbol, snap.Side, sideReason)
	}

	ev.stage = StageDebate
	in := debate.Input{Snapshot: snap, Tier: tier, Patterns: pattern.Analyze(snap.Candles)}
	in.History, in.Concepts = j.retrieve(ctx, snap, tier.Trending())
	pro, con, err := j.debate(ctx, in)
	ev.rec.Pro, ev.rec.Con = &pro, &con
	if err != nil {
		if sideVetoed {
			ev.rec.Error = err.Error()
			return j.hold(ev, 0, "Tier 1 Veto: "+sideReason)
		}
		return j.fail(ev, "Debate failed", err)
	}

	ev.stage = StageArbitration
	winner, bias, _ := j.arb.Winner(pro.Confidence, con.Confidence)
	if intent == market.Neutral {
		intent = bias
	}
	vetoed, vetoReason := tier.VetoFor(intent)
	var verdict debate.Verdict
	switch j.params.ArbitrationMode {
	case ModeLLM:
		v, err := j.deps.Arbiter.Arbitrate(ctx, ArbiterInput{Snapshot: snap, Tier: tier, Pro: pro, Con: con})
		if err != nil {
			if vetoed {
				ev.rec.Error = err.Error()
				return j.hold(ev, 0, "Tier 1 Veto: "+vetoReason)
			}
			return j.fail(ev, "Arbitration failed", err)
		}
		if v.Fallback {
			logger.Warnf("%s arbitration reply unparseable, using neutral score", snap.Symbol)
		}
		ev.rec.ArbiterReason = v.Reason
		verdict = j.arb.Decide(decimalx.FromFloat(v.Score), intent, tier.Strength, vetoed)
		verdict.Winner, verdict.ProConfidence, verdict.ConConfidence = winner, pro.Confidence, con.Confidence
		verdict.VetoReason = vetoReason
		verdict.Reasoning = v.Reason
	default:
		verdict = j.arb.Judge(pro, con, tier.Strength, vetoed, vetoReason)
	}
	ev.rec.Verdict = &verdict
	ev.rec.FinalScore = verdict.FinalScore
	final := decimalx.ToFloat(verdict.FinalScore)
	rationale := j.rationale(ev, verdict)

	if verdict.VetoActive {
		return j.hold(ev, final, "Tier 1 Veto: "+verdict.VetoReason)
	}
	if !verdict.Action.IsEntry() {
		if verdict.FinalScore.LessThan(debate.ExecutionThreshold) {
			return j.hold(ev, final, fmt.Sprintf("Score %s < %s | Judge: %s",
				verdict.FinalScore.StringFixed(2), debate.ExecutionThreshold.StringFixed(2), rationale))
		}
		return j.hold(ev, final, fmt.Sprintf("Score %s | No directional edge | Judge: %s",
			verdict.FinalScore.StringFixed(2), rationale))
	}
	if snap.Side != "" && verdict.Action.Direction() != snap.Side.Direction() {
		return j.hold(ev, final, fmt.Sprintf("Score %s | Debate favours %s against requested %s | Judge: %s",
			verdict.FinalScore.StringFixed(2), verdict.Action.Direction(), snap.Side, rationale))
	}

	ev.stage = StageSizing
	sized, holdReason := j.size(ctx, ev, snap, verdict)
	if holdReason != "" {
		return j.hold(ev, final, holdReason)
	}

	ev.stage = StageSignal
	return decision.TradeSignal{
		Symbol:     snap.Symbol,
		Action:     verdict.Action,
		LotSize:    sized.lot,
		StopLoss:   sized.stop,
		TakeProfit: sized.target,
		Confidence: decision.ClampConfidence(final),
		Reason:     fmt.Sprintf("Score: %s | Judge: %s", verdict.FinalScore.StringFixed(2), rationale),
	}
}

func (j *Judge) rationale(ev *evaluation, v debate.Verdict) string {
	if ev.rec.ArbiterReason != "" {
		return ev.rec.ArbiterReason
	}
	return v.Summary()
}

func (j *Judge) hold(ev *evaluation, confidence float64, reason string) decision.TradeSignal {
	return decision.Hold(ev.rec.Snapshot.Symbol, confidence, reason)
}

// fail records err on the audit record and degrades to HOLD.
func (j *Judge) fail(ev *evaluation, prefix string, err error) decision.TradeSignal {
	logger.Warnf("%s %s: %v", ev.rec.Snapshot.Symbol, strings.ToLower(prefix), err)
	ev.rec.Error = err.Error()
	return j.hold(ev, 0, prefix+": "+err.Error())
}

// cooldown returns a non-empty reason while the symbol is cooling down.
func (j *Judge) cooldown(ctx context.Context, symbol string) (string, error) {
	if j.deps.Cooldown == nil || j.params.CooldownMinutes == 0 {
		return "", nil
	}
	last, ok, err := j.deps.Cooldown.LastTradeTime(ctx, symbol)
	if err != nil || !ok {
		return "", err
	}
	window := time.Duration(j.params.CooldownMinutes) * time.Minute
	elapsed := j.now().Sub(last)
	if elapsed >= window {
		return "", nil
	}
	remaining := int(math.Ceil((window - elapsed).Minutes()))
	return fmt.Sprintf("COOLDOWN ACTIVE: %dm remaining", remaining), nil
}

// retrieve degrades to empty context on failure.
func (j *Judge) retrieve(ctx context.Context, snap market.Snapshot, trending bool) ([]retrieval.PastTrade, []string) {
	r := j.deps.Retriever
	if r == nil {
		return nil, nil
	}
	history, err := r.QuerySimilarHistory(ctx, snap, j.params.HistoryK)
	if err != nil {
		logger.Warnf("history retrieval for %s failed: %v", snap.Symbol, err)
		history = nil
	}
	query := ReversalConceptQuery
	if trending {
		query = TrendConceptQuery
	}
	concepts, err := r.QueryConcepts(ctx, query, j.params.ConceptK)
	if err != nil {
		logger.Warnf("concept retrieval %q failed: %v", query, err)
		concepts = nil
	}
	return history, concepts
}

func (j *Judge) finish(ev *evaluation, sig decision.TradeSignal, start time.Time) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("judge finish panic: %v", r)
		}
	}()
	elapsed := j.now().Sub(start)
	ev.rec.Signal = sig
	ev.rec.Duration = elapsed
	j.hooks.Dispatch(ev.rec)
	if sig.Action.IsEntry() && j.deps.Notifier != nil {
		msg := signalMessage(sig, ev.rec.Timestamp)
		j.hooks.Go("notify", func(ctx context.Context) error {
			return j.deps.Notifier.SendText(ctx, msg)
		})
	}
	out := outcome(ev, sig, elapsed)
	for _, o := range j.deps.Observers {
		o.ObserveEvaluation(out)
	}
	logger.Infof("judge %s %s -> %s conf=%.2f stage=%s in %s | %s",
		sig.TraceID, sig.Symbol, sig.Action, sig.Confidence, ev.stage, elapsed.Round(time.Millisecond), sig.Reason)
}

func outcome(ev *evaluation, sig decision.TradeSignal, d time.Duration) Outcome {
	o := Outcome{
		TraceID:    sig.TraceID,
		At:         ev.rec.Timestamp,
		Symbol:     ev.rec.Snapshot.Symbol,
		Timeframe:  ev.rec.Snapshot.Timeframe,
		Stage:      ev.stage,
		Action:     sig.Action,
		Confidence: sig.Confidence,
		Reason:     sig.Reason,
		Entry:      ev.rec.Snapshot.Price,
		StopLoss:   decimalx.ToFloat(sig.StopLoss),
		TakeProfit: decimalx.ToFloat(sig.TakeProfit),
		Duration:   d,
	}
	if v := ev.rec.Verdict; v != nil {
		o.Winner = v.Winner
		o.ProConfidence = v.ProConfidence
		o.ConConfidence = v.ConConfidence
		o.Tier1Contribution = decimalx.ToFloat(v.Tier1Contribution)
		o.DebateContribution = decimalx.ToFloat(v.DebateContribution)
		o.VetoActive = v.VetoActive
		o.VetoReason = v.VetoReason
	} else if strings.HasPrefix(sig.Reason, "Tier 1 Veto: ") {
		o.VetoActive = true
		o.VetoReason = strings.TrimPrefix(sig.Reason, "Tier 1 Veto: ")
	}
	return o
}

func signalMessage(sig decision.TradeSignal, at time.Time) string {
	return notifier.StructuredMessage{
		Title: fmt.Sprintf("%s SIGNAL: %s", sig.Action, sig.Symbol),
		Fields: []notifier.Field{
			{Key: "Score", Value: fmt.Sprintf("%.2f", sig.Confidence)},
			{Key: "Lot", Value: sig.LotSize.StringFixed(2)},
			{Key: "SL", Value: sig.StopLoss.String()},
			{Key: "TP", Value: sig.TakeProfit.String()},
		},
		Sections:  []notifier.MessageSection{{Title: "Reason", Lines: strings.Split(sig.Reason, " | ")}},
		Footer:    sig.TraceID,
		Timestamp: at,
	}.RenderMarkdown()
}
