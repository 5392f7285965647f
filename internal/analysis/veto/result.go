package veto

import (
	"fmt"

	"sentinel/internal/market"
)

type Alignment string

const (
	AlignmentCrossing       Alignment = "crossing"
	AlignmentAlignedBullish Alignment = "aligned_bullish"
	AlignmentAlignedBearish Alignment = "aligned_bearish"
	AlignmentMixed          Alignment = "mixed"
)

const ReasonInsufficientData = "Insufficient data"

// Result is the Tier-1 verdict for one snapshot. The veto queries below
// derive everything from these fields.
type Result struct {
	Direction      market.Direction `json:"direction"`
	Strength       float64          `json:"strength"`
	StructureValid bool             `json:"structure_valid"`
	VetoReason     string           `json:"veto_reason,omitempty"`
	Support        []float64        `json:"support_levels,omitempty"`
	Resistance     []float64        `json:"resistance_levels,omitempty"`
	Alignment      Alignment        `json:"ma_alignment"`
	Threshold      float64          `json:"veto_threshold"`
	Insufficient   bool             `json:"insufficient_data,omitempty"`
}

func insufficient(threshold float64) Result {
	return Result{
		Direction:    market.Neutral,
		Alignment:    AlignmentMixed,
		VetoReason:   ReasonInsufficientData,
		Threshold:    threshold,
		Insufficient: true,
	}
}

func (r Result) strong(d market.Direction) bool {
	return r.Direction == d && r.Strength > r.Threshold
}

// ShouldVetoBuy reports whether a long entry is blocked and why.
func (r Result) ShouldVetoBuy() (bool, string) {
	if r.Insufficient {
		return false, ""
	}
	if r.strong(market.Bearish) {
		return true, fmt.Sprintf("VETO: Bearish trend on higher timeframe (strength: %.2f)", r.Strength)
	}
	if !r.StructureValid {
		return true, "VETO: Invalid market structure"
	}
	return false, ""
}

// ShouldVetoSell reports whether a short entry is blocked and why.
func (r Result) ShouldVetoSell() (bool, string) {
	if r.Insufficient {
		return false, ""
	}
	if r.strong(market.Bullish) {
		return true, fmt.Sprintf("VETO: Bullish trend on higher timeframe (strength: %.2f)", r.Strength)
	}
	if !r.StructureValid {
		return true, "VETO: Invalid market structure"
	}
	return false, ""
}

// VetoFor applies the veto matching the intended direction. With no
// intent only a broken structure blocks.
func (r Result) VetoFor(intent market.Direction) (bool, string) {
	switch intent {
	case market.Bullish:
		return r.ShouldVetoBuy()
	case market.Bearish:
		return r.ShouldVetoSell()
	}
	if !r.Insufficient && !r.StructureValid {
		return true, "VETO: Invalid market structure"
	}
	return false, ""
}

func (r Result) Trend() market.Trend {
	return market.ClassifyTrend(r.Direction, r.Strength, r.Threshold)
}

// Score is the signed trend score looked up from the trend class.
func (r Result) Score() float64 { return r.Trend().Score() }

// Trending reports a directional read that the concept lookup treats as a
// trend-following setup.
func (r Result) Trending() bool {
	return r.Direction != market.Neutral && r.Strength > 0
}
