package debate

import (
	"context"
	"fmt"
	"strings"

	"sentinel/internal/analysis/pattern"
	"sentinel/internal/gateway/provider"
	"sentinel/internal/market"
	"sentinel/internal/retrieval"
)

// Agent argues one side of a trade.
type Agent interface {
	Side() Side
	Analyze(ctx context.Context, in Input) (Analysis, error)
}

const (
	nearResistancePct = 0.002
	highSpreadPips    = 3.0
	minAnalogues      = 2
	promptWindow      = 50
)

const (
	proSystemPrompt = `You are the Pro Agent (GAS) of a trading desk.
Find the strongest honest reasons to take this trade. Cite concrete levels,
the Tier 1 readout and past analogues. Finish with a line "confidence: 0.xx".`
	conSystemPrompt = `You are the Con Agent (BRAKE) of a trading desk.
Find every reason this trade could fail: structure, resistance, cost,
overextension, bad history. Flag fatal flaws first. Finish with a line
"confidence: 0.xx".`
)

// ProAgent builds the bullish case. A nil generator yields the
// deterministic analysis only.
type ProAgent struct {
	gen provider.TextGenerator
}

func NewProAgent(gen provider.TextGenerator) *ProAgent { return &ProAgent{gen: gen} }

func (a *ProAgent) Side() Side { return SidePro }

func (a *ProAgent) Analyze(ctx context.Context, in Input) (Analysis, error) {
	out := newAnalysis(SidePro, market.Bullish, proArguments(in), "Standard risk, use stop loss")
	return narrate(ctx, a.gen, proSystemPrompt, in, out)
}

// ConAgent builds the bearish case.
type ConAgent struct {
	gen provider.TextGenerator
}

func NewConAgent(gen provider.TextGenerator) *ConAgent { return &ConAgent{gen: gen} }

func (a *ConAgent) Side() Side { return SideCon }

func (a *ConAgent) Analyze(ctx context.Context, in Input) (Analysis, error) {
	out := newAnalysis(SideCon, market.Bearish, conArguments(in), "Potential trap scenario")
	return narrate(ctx, a.gen, conSystemPrompt, in, out)
}

func proArguments(in Input) []Argument {
	s := in.Snapshot
	var args []Argument
	if s.Close > s.Open {
		args = append(args, Argument{
			Claim:      "Bullish price action",
			Evidence:   fmt.Sprintf("Close (%.5f) > Open (%.5f)", s.Close, s.Open),
			Confidence: 0.6,
			Weight:     0.3,
		})
	}
	if s.RSI != nil && *s.RSI >= 40 && *s.RSI <= 60 {
		args = append(args, Argument{
			Claim:      "RSI in optimal zone",
			Evidence:   fmt.Sprintf("RSI %.1f - room to move", *s.RSI),
			Confidence: 0.7,
			Weight:     0.25,
		})
	}
	if !in.Tier.Insufficient && in.Tier.Direction == market.Bullish {
		args = append(args, Argument{
			Claim:      "Higher timeframe trend is bullish",
			Evidence:   fmt.Sprintf("Tier 1 strength %.2f, %s", in.Tier.Strength, in.Tier.Alignment),
			Confidence: 0.5 + in.Tier.Strength/2,
			Weight:     0.2,
		})
	}
	if sig, ok := in.Patterns.Find(pattern.DoubleBottom); ok && s.Price >= sig.Level {
		args = append(args, Argument{
			Claim:      "Double bottom support",
			Evidence:   fmt.Sprintf("Price %.5f holding above %s", s.Price, sig.Note),
			Confidence: 0.65,
			Weight:     0.2,
		})
	}
	if rate, n := retrieval.WinRate(in.History); n >= minAnalogues && rate > 0.5 {
		args = append(args, Argument{
			Claim:      "Similar setups worked before",
			Evidence:   fmt.Sprintf("%.0f%% win rate over %d analogues", rate*100, n),
			Confidence: rate,
			Weight:     0.2,
		})
	}
	return args
}

func conArguments(in Input) []Argument {
	s := in.Snapshot
	var args []Argument
	if s.Spread > highSpreadPips {
		args = append(args, Argument{
			Claim:      "High spread warning",
			Evidence:   fmt.Sprintf("Spread %.1f pips - entry cost high", s.Spread),
			Confidence: 0.8,
			Weight:     0.35,
		})
	}
	if r, ok := in.Tier.NearestResistance(s.Price); ok && s.Price > 0 && (r-s.Price)/s.Price <= nearResistancePct {
		args = append(args, Argument{
			Claim:      "Near resistance",
			Evidence:   fmt.Sprintf("Price %.5f within %.1f%% of resistance %.5f", s.Price, nearResistancePct*100, r),
			Confidence: 0.7,
			Weight:     0.3,
		})
	}
	if s.RSI != nil && *s.RSI > 70 {
		args = append(args, Argument{
			Claim:      "RSI overbought",
			Evidence:   fmt.Sprintf("RSI %.1f above 70", *s.RSI),
			Confidence: 0.75,
			Weight:     0.3,
		})
	}
	if !in.Tier.Insufficient && in.Tier.Direction == market.Bearish {
		args = append(args, Argument{
			Claim:      "Higher timeframe trend is bearish",
			Evidence:   fmt.Sprintf("Tier 1 strength %.2f, %s", in.Tier.Strength, in.Tier.Alignment),
			Confidence: 0.5 + in.Tier.Strength/2,
			Weight:     0.2,
		})
	}
	if sig, ok := in.Patterns.Find(pattern.DoubleTop); ok && s.Price <= sig.Level {
		args = append(args, Argument{
			Claim:      "Double top overhead",
			Evidence:   fmt.Sprintf("Price %.5f capped by %s", s.Price, sig.Note),
			Confidence: 0.7,
			Weight:     0.25,
		})
	}
	if sig, ok := in.Patterns.Find(pattern.Compression); ok {
		args = append(args, Argument{
			Claim:      "Breakout direction unclear",
			Evidence:   sig.Note,
			Confidence: 0.55,
			Weight:     0.15,
		})
	}
	if rate, n := retrieval.WinRate(in.History); n >= minAnalogues && rate < 0.5 {
		args = append(args, Argument{
			Claim:      "Similar setups failed before",
			Evidence:   fmt.Sprintf("%.0f%% win rate over %d analogues", rate*100, n),
			Confidence: 1 - rate,
			Weight:     0.2,
		})
	}
	return args
}

// narrate attaches generated prose. The deterministic fields survive a
// provider failure so callers can still audit what was computed.
func narrate(ctx context.Context, gen provider.TextGenerator, system string, in Input, out Analysis) (Analysis, error) {
	if gen == nil {
		return out, nil
	}
	raw, err := gen.Generate(ctx, provider.Prompt{
		Purpose: "debate_" + strings.ToLower(string(out.Agent)),
		System:  system,
		User:    buildUserPrompt(in, out),
	})
	if err != nil {
		out.Err = err.Error()
		return out, fmt.Errorf("%s agent: %w", strings.ToLower(string(out.Agent)), err)
	}
	out.RawText = strings.TrimSpace(raw)
	return out, nil
}

func buildUserPrompt(in Input, out Analysis) string {
	s := in.Snapshot
	var b strings.Builder
	fmt.Fprintf(&b, "# Market %s %s\n", s.Symbol, s.Timeframe)
	fmt.Fprintf(&b, "Price: %.5f | O: %.5f H: %.5f L: %.5f C: %.5f\n", s.Price, s.Open, s.High, s.Low, s.Close)
	fmt.Fprintf(&b, "RSI: %.1f | Spread: %.1f pips | Tick volume: %.0f\n", s.RSIValue(), s.Spread, s.TickVolume)
	if s.ATR != nil {
		fmt.Fprintf(&b, "ATR: %.5f\n", *s.ATR)
	}
	if s.Side != "" {
		fmt.Fprintf(&b, "Requested side: %s\n", s.Side)
	}
	if w := market.Summarize(market.Tail(s.Candles, promptWindow), s.Timeframe); w != "" {
		fmt.Fprintf(&b, "Recent window: %s\n", w)
	}
	b.WriteString("\n")
	b.WriteString(in.Tier.Context())
	if len(in.Patterns.Signals) > 0 {
		b.WriteString("\n# Chart patterns\n")
		for _, p := range in.Patterns.Signals {
			fmt.Fprintf(&b, "- %s\n", p.Note)
		}
	}

	if len(in.History) > 0 {
		b.WriteString("\n# Similar past trades\n")
		for _, t := range in.History {
			fmt.Fprintf(&b, "- %s %s %s profit=%.2f similarity=%.2f\n", t.Symbol, t.Side, t.Outcome, t.Profit, t.Similarity)
		}
	}
	if len(in.Concepts) > 0 {
		b.WriteString("\n# Playbook\n")
		for _, c := range in.Concepts {
			b.WriteString(c)
			b.WriteString("\n")
		}
	}
	if len(out.Arguments) > 0 {
		b.WriteString("\n# Pre-computed arguments\n")
		for _, a := range out.Arguments {
			fmt.Fprintf(&b, "- %s: %s (confidence %.2f, weight %.2f)\n", a.Claim, a.Evidence, a.Confidence, a.Weight)
		}
	}
	return b.String()
}
