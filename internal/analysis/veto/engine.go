// Package veto is the deterministic Tier-1 trend and structure check. It
// holds unilateral veto power over the debate outcome.
package veto

import (
	"sort"

	"sentinel/internal/market"
)

const (
	DefaultThreshold = 0.7
	minCandles       = 20
	structureWindow  = 20
	swingNeighbours  = 2
	slopeSamples     = 5
	alignmentBoost   = 1.3
)

type Engine struct {
	threshold float64
}

func NewEngine(threshold float64) *Engine {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold}
}

func (e *Engine) Threshold() float64 { return e.threshold }

// Analyze is pure and never fails; short histories yield a neutral result.
func (e *Engine) Analyze(snap market.Snapshot) Result {
	if len(snap.Candles) < minCandles {
		return insufficient(e.threshold)
	}
	dir, strength := trend(snap.MAFast, snap.MASlow, snap.MATrend)
	valid, support, resistance := structure(snap.Candles, dir)

	res := Result{
		Direction:      dir,
		Strength:       strength,
		StructureValid: valid,
		Support:        support,
		Resistance:     resistance,
		Alignment:      alignment(snap.MAFast, snap.MASlow, snap.MATrend),
		Threshold:      e.threshold,
	}
	if strength > e.threshold {
		switch dir {
		case market.Bearish:
			res.VetoReason = "Strong bearish trend - BUY signals blocked"
		case market.Bullish:
			res.VetoReason = "Strong bullish trend - SELL signals blocked"
		}
	}
	return res
}

func crossed(fast, slow []float64) (up, down bool) {
	fNow, fPrev := fast[len(fast)-1], fast[len(fast)-2]
	sNow, sPrev := slow[len(slow)-1], slow[len(slow)-2]
	return fNow > sNow && fPrev <= sPrev, fNow < sNow && fPrev >= sPrev
}

func trend(fast, slow, long []float64) (market.Direction, float64) {
	if len(fast) < 2 || len(slow) < 2 {
		return market.Neutral, 0
	}
	up, down := crossed(fast, slow)
	fNow, sNow := fast[len(fast)-1], slow[len(slow)-1]
	switch {
	case up:
		return market.Bullish, strength(fast, slow, long, market.Bullish)
	case down:
		return market.Bearish, strength(fast, slow, long, market.Bearish)
	case fNow > sNow:
		return market.Bullish, 0.5 + strength(fast, slow, long, market.Bullish)*0.5
	case fNow < sNow:
		return market.Bearish, 0.5 + strength(fast, slow, long, market.Bearish)*0.5
	default:
		return market.Neutral, 0
	}
}

// strength = min(|slope|·10, 1) over the fast MA, boosted when the fast MA
// sits on the trend side of the long MA.
func strength(fast, slow, long []float64, dir market.Direction) float64 {
	if len(fast) < slopeSamples || len(slow) < slopeSamples {
		return 0
	}
	fNow := fast[len(fast)-1]
	slope := (fNow - fast[len(fast)-slopeSamples]) / slopeSamples
	s := min(abs(slope)*10, 1.0)
	if ref, ok := market.Last(long); ok {
		if (dir == market.Bullish && fNow > ref) || (dir == market.Bearish && fNow < ref) {
			s = min(s*alignmentBoost, 1.0)
		}
	}
	return s
}

func structure(candles []market.Candle, dir market.Direction) (bool, []float64, []float64) {
	window := market.Tail(candles, structureWindow)
	highs := market.Highs(window)
	lows := market.Lows(window)

	var swingHighs, swingLows []float64
	for i := swingNeighbours; i < len(window)-swingNeighbours; i++ {
		if isExtreme(highs, i, func(a, b float64) bool { return a > b }) {
			swingHighs = append(swingHighs, highs[i])
		}
		if isExtreme(lows, i, func(a, b float64) bool { return a < b }) {
			swingLows = append(swingLows, lows[i])
		}
	}

	valid := true
	switch {
	case dir == market.Bullish && len(swingHighs) >= 2:
		valid = swingHighs[len(swingHighs)-1] >= swingHighs[len(swingHighs)-2]
	case dir == market.Bearish && len(swingLows) >= 2:
		valid = swingLows[len(swingLows)-1] <= swingLows[len(swingLows)-2]
	}

	var support, resistance []float64
	if len(swingLows) > 0 {
		support = append(support, market.Tail(swingLows, 3)...)
		sort.Float64s(support)
	} else {
		support = []float64{minOf(lows)}
	}
	if len(swingHighs) > 0 {
		resistance = append(resistance, market.Tail(swingHighs, 3)...)
		sort.Sort(sort.Reverse(sort.Float64Slice(resistance)))
	} else {
		resistance = []float64{maxOf(highs)}
	}
	return valid, support, resistance
}

func isExtreme(series []float64, i int, beats func(a, b float64) bool) bool {
	for k := 1; k <= swingNeighbours; k++ {
		if !beats(series[i], series[i-k]) || !beats(series[i], series[i+k]) {
			return false
		}
	}
	return true
}

func alignment(fast, slow, long []float64) Alignment {
	if len(fast) < 2 || len(slow) < 2 {
		return AlignmentMixed
	}
	if up, down := crossed(fast, slow); up || down {
		return AlignmentCrossing
	}
	ref, ok := market.Last(long)
	if !ok {
		return AlignmentMixed
	}
	fNow, sNow := fast[len(fast)-1], slow[len(slow)-1]
	switch {
	case fNow > sNow && sNow > ref:
		return AlignmentAlignedBullish
	case fNow < sNow && sNow < ref:
		return AlignmentAlignedBearish
	}
	return AlignmentMixed
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		m = min(m, v)
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		m = max(m, v)
	}
	return m
}
