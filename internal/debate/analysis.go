// Package debate runs the adversarial Pro/Con analysis and scores it.
package debate

import (
	"sentinel/internal/analysis/pattern"
	"sentinel/internal/analysis/veto"
	"sentinel/internal/market"
	"sentinel/internal/retrieval"
)

type Side string

const (
	SidePro     Side = "PRO"
	SideCon     Side = "CON"
	SideNeutral Side = "NEUTRAL"
)

// Argument is one weighted claim. Weight must be positive to count.
type Argument struct {
	Claim      string  `json:"claim"`
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
}

// Analysis is the structured output of one agent.
type Analysis struct {
	Agent          Side             `json:"agent"`
	Bias           market.Direction `json:"bias"`
	Arguments      []Argument       `json:"arguments"`
	Confidence     float64          `json:"confidence"`
	KeyPoints      []string         `json:"key_points"`
	RiskAssessment string           `json:"risk_assessment"`
	RawText        string           `json:"raw_text,omitempty"`
	Err            string           `json:"error,omitempty"`
}

// Input is everything an agent may read for one evaluation.
type Input struct {
	Snapshot market.Snapshot
	Tier     veto.Result
	Patterns pattern.Result
	History  []retrieval.PastTrade
	Concepts []string
}

const neutralConfidence = 0.5

// WeightedConfidence is Σ(c·w)/Σw, or 0.5 when there is nothing to weigh.
func WeightedConfidence(args []Argument) float64 {
	var num, den float64
	for _, a := range args {
		if a.Weight <= 0 {
			continue
		}
		num += a.Confidence * a.Weight
		den += a.Weight
	}
	if den == 0 {
		return neutralConfidence
	}
	return num / den
}

func newAnalysis(side Side, bias market.Direction, args []Argument, risk string) Analysis {
	points := make([]string, 0, len(args))
	for _, a := range args {
		points = append(points, a.Claim)
	}
	if len(args) == 0 {
		bias = market.Neutral
	}
	return Analysis{
		Agent:          side,
		Bias:           bias,
		Arguments:      args,
		Confidence:     WeightedConfidence(args),
		KeyPoints:      points,
		RiskAssessment: risk,
	}
}
