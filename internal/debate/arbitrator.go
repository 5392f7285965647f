package debate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sentinel/internal/decision"
	"sentinel/internal/market"
	"sentinel/internal/pkg/decimalx"
)

var (
	WeightTier1        = decimalx.MustParse("0.30")
	WeightDebate       = decimalx.MustParse("0.70")
	ExecutionThreshold = decimalx.MustParse("0.65")
	StrongThreshold    = decimalx.MustParse("0.8")
	VetoPenalty        = decimalx.MustParse("0.3")
)

const DefaultMargin = 0.15

// Verdict is the scored outcome of a debate.
type Verdict struct {
	Winner             Side             `json:"debate_winner"`
	DebateBias         market.Direction `json:"debate_bias"`
	DebateScore        decimal.Decimal  `json:"debate_score"`
	FinalScore         decimal.Decimal  `json:"final_score"`
	Action             decision.Action  `json:"action"`
	ProConfidence      float64          `json:"pro_confidence"`
	ConConfidence      float64          `json:"con_confidence"`
	Tier1Contribution  decimal.Decimal  `json:"tier1_contribution"`
	DebateContribution decimal.Decimal  `json:"debate_contribution"`
	VetoActive         bool             `json:"veto_active"`
	VetoReason         string           `json:"veto_reason,omitempty"`
	Reasoning          string           `json:"reasoning"`
}

// Arbitrator scores the Pro/Con debate against the Tier-1 read.
type Arbitrator struct {
	Margin float64
}

func NewArbitrator(margin float64) Arbitrator {
	if margin <= 0 {
		margin = DefaultMargin
	}
	return Arbitrator{Margin: margin}
}

// Winner picks the debate side. Inside the margin the debate is neutral
// and scored at the mean of both confidences.
func (a Arbitrator) Winner(pro, con float64) (Side, market.Direction, decimal.Decimal) {
	margin := decimalx.FromFloat(a.Margin)
	if margin.IsZero() {
		margin = decimalx.FromFloat(DefaultMargin)
	}
	p, c := decimalx.FromFloat(pro), decimalx.FromFloat(con)
	diff := p.Sub(c)
	switch {
	case diff.GreaterThan(margin):
		return SidePro, market.Bullish, p
	case diff.LessThan(margin.Neg()):
		return SideCon, market.Bearish, c
	}
	return SideNeutral, market.Neutral, p.Add(c).Div(decimal.NewFromInt(2))
}

// Decide applies the weighted formula to an already chosen debate score.
func (a Arbitrator) Decide(debateScore decimal.Decimal, bias market.Direction, tierStrength float64, veto bool) Verdict {
	v := Verdict{
		DebateBias:         bias,
		DebateScore:        debateScore,
		Tier1Contribution:  decimalx.FromFloat(tierStrength).Mul(WeightTier1),
		DebateContribution: debateScore.Mul(WeightDebate),
		VetoActive:         veto,
		Action:             decision.ActionHold,
	}
	if veto {
		v.FinalScore = debateScore.Mul(VetoPenalty)
		return v
	}
	v.FinalScore = v.Tier1Contribution.Add(v.DebateContribution)
	if v.FinalScore.LessThan(ExecutionThreshold) {
		return v
	}
	strong := v.FinalScore.GreaterThanOrEqual(StrongThreshold)
	switch bias {
	case market.Bullish:
		v.Action = decision.ActionBuy
		if strong {
			v.Action = decision.ActionStrongBuy
		}
	case market.Bearish:
		v.Action = decision.ActionSell
		if strong {
			v.Action = decision.ActionStrongSell
		}
	}
	return v
}

// Judge runs the full arbitration for two analyses.
func (a Arbitrator) Judge(pro, con Analysis, tierStrength float64, veto bool, vetoReason string) Verdict {
	winner, bias, score := a.Winner(pro.Confidence, con.Confidence)
	v := a.Decide(score, bias, tierStrength, veto)
	v.Winner = winner
	v.ProConfidence = pro.Confidence
	v.ConConfidence = con.Confidence
	if veto {
		v.VetoReason = vetoReason
	}
	v.Reasoning = reasoning(pro, con, v)
	return v
}

func reasoning(pro, con Analysis, v Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DECISION: %s\n", v.Action)
	fmt.Fprintf(&b, "Confidence: %s%%\n", v.FinalScore.Mul(decimalx.Hundred).StringFixed(1))
	b.WriteString("\n[AI DEBATE]\n")
	fmt.Fprintf(&b, "Winner: %s\n", v.Winner)
	fmt.Fprintf(&b, "Pro Agent: %.1f%% confidence\n", pro.Confidence*100)
	fmt.Fprintf(&b, "Con Agent: %.1f%% confidence\n", con.Confidence*100)
	switch v.Winner {
	case SidePro:
		writePoints(&b, "Pro", pro)
	case SideCon:
		writePoints(&b, "Con", con)
	default:
		b.WriteString("\nDebate inconclusive - arguments balanced\n")
	}
	b.WriteString("\n[RISK ASSESSMENT]\n")
	fmt.Fprintf(&b, "Pro: %s\n", pro.RiskAssessment)
	fmt.Fprintf(&b, "Con: %s\n", con.RiskAssessment)
	if v.VetoActive {
		b.WriteString("\n[TIER 1 VETO]\n")
		b.WriteString(v.VetoReason)
		b.WriteString("\nTrade blocked by mathematical analysis.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writePoints(b *strings.Builder, label string, a Analysis) {
	fmt.Fprintf(b, "\n%s Arguments (%d):\n", label, len(a.Arguments))
	for i, p := range a.KeyPoints {
		if i == 2 {
			break
		}
		fmt.Fprintf(b, "  %d. %s\n", i+1, p)
	}
}

// Summary is the one-line rationale used in signal reasons.
func (v Verdict) Summary() string {
	if v.VetoActive {
		return "Tier 1 Veto: " + v.VetoReason
	}
	return fmt.Sprintf("%s wins (pro %.2f / con %.2f), tier1 %s + debate %s",
		v.Winner, v.ProConfidence, v.ConConfidence,
		v.Tier1Contribution.StringFixed(2), v.DebateContribution.StringFixed(2))
}
