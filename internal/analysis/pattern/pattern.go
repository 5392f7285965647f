// Package pattern spots simple chart structures in a candle history:
// double tops and bottoms, converging ranges and volatility squeezes.
package pattern

import (
	"fmt"
	"math"

	"sentinel/internal/market"
)

type Kind string

const (
	DoubleBottom Kind = "double_bottom"
	DoubleTop    Kind = "double_top"
	Triangle     Kind = "triangle"
	Compression  Kind = "compression"
)

const (
	minBarsDouble      = 20
	minBarsTriangle    = 30
	minBarsCompression = 40

	// Two extremes count as equal within this relative distance.
	twinTolerance = 0.004
	// The swing between twins must be at least this deep, relative to price.
	minSwingDepth  = 0.001
	slopeThreshold = 0.0001
	squeezeRatio   = 0.65
	convergeDelta  = 0.05
)

type Signal struct {
	Kind  Kind             `json:"kind"`
	Bias  market.Direction `json:"bias"`
	Level float64          `json:"level,omitempty"`
	Note  string           `json:"note"`
}

type Result struct {
	// Slope of a least squares fit over closes, relative to the mean close.
	Slope   float64          `json:"slope"`
	Bias    market.Direction `json:"bias"`
	Signals []Signal         `json:"signals,omitempty"`
}

func (r Result) Find(k Kind) (Signal, bool) {
	for _, s := range r.Signals {
		if s.Kind == k {
			return s, true
		}
	}
	return Signal{}, false
}

func Analyze(candles []market.Candle) Result {
	if len(candles) == 0 {
		return Result{Bias: market.Neutral}
	}
	closes := market.Closes(candles)
	highs := market.Highs(candles)
	lows := market.Lows(candles)

	res := Result{Slope: relativeSlope(closes)}
	switch {
	case res.Slope > slopeThreshold:
		res.Bias = market.Bullish
	case res.Slope < -slopeThreshold:
		res.Bias = market.Bearish
	default:
		res.Bias = market.Neutral
	}
	if s, ok := doubleBottom(lows); ok {
		res.Signals = append(res.Signals, s)
	}
	if s, ok := doubleTop(highs); ok {
		res.Signals = append(res.Signals, s)
	}
	if s, ok := triangle(highs, lows); ok {
		res.Signals = append(res.Signals, s)
	}
	if s, ok := compression(highs, lows); ok {
		res.Signals = append(res.Signals, s)
	}
	return res
}

func relativeSlope(series []float64) float64 {
	n := float64(len(series))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 || sumY == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / denom
	return slope / (sumY / n)
}

func doubleBottom(lows []float64) (Signal, bool) {
	if len(lows) < minBarsDouble {
		return Signal{}, false
	}
	// Mirror the lows so the top detector finds bottoms.
	neg := make([]float64, len(lows))
	for i, v := range lows {
		neg[i] = -v
	}
	level, ok := twinPeaks(neg[len(neg)/2:])
	if !ok {
		return Signal{}, false
	}
	level = -level
	return Signal{
		Kind:  DoubleBottom,
		Bias:  market.Bullish,
		Level: level,
		Note:  fmt.Sprintf("double bottom, support near %.5f", level),
	}, true
}

func doubleTop(highs []float64) (Signal, bool) {
	if len(highs) < minBarsDouble {
		return Signal{}, false
	}
	level, ok := twinPeaks(highs[len(highs)/2:])
	if !ok {
		return Signal{}, false
	}
	return Signal{
		Kind:  DoubleTop,
		Bias:  market.Bearish,
		Level: level,
		Note:  fmt.Sprintf("double top, resistance near %.5f", level),
	}, true
}

// twinPeaks finds two near-equal maxima at least three bars apart with a
// real swing between them, returning their mean.
func twinPeaks(window []float64) (float64, bool) {
	i1 := argmax(window, -1, -1)
	if i1 < 0 {
		return 0, false
	}
	i2 := argmax(window, i1-2, i1+2)
	if i2 < 0 || absInt(i1-i2) < 3 {
		return 0, false
	}
	p1, p2 := window[i1], window[i2]
	ref := math.Abs(p1)
	if ref == 0 || math.Abs(p1-p2)/ref > twinTolerance {
		return 0, false
	}
	lo, hi := i1, i2
	if lo > hi {
		lo, hi = hi, lo
	}
	trough := math.Inf(1)
	for _, v := range window[lo+1 : hi] {
		trough = math.Min(trough, v)
	}
	if (math.Min(p1, p2)-trough)/ref < minSwingDepth {
		return 0, false
	}
	return (p1 + p2) / 2, true
}

func triangle(highs, lows []float64) (Signal, bool) {
	if len(highs) < minBarsTriangle {
		return Signal{}, false
	}
	half := len(highs) / 2
	firstHigh, lastHigh := maxOf(highs[:half]), maxOf(highs[half:])
	firstLow, lastLow := minOf(lows[:half]), minOf(lows[half:])
	if !(lastHigh < firstHigh && lastLow > firstLow) || firstHigh == 0 {
		return Signal{}, false
	}
	if ((firstHigh-firstLow)-(lastHigh-lastLow))/firstHigh <= convergeDelta {
		return Signal{}, false
	}
	return Signal{Kind: Triangle, Bias: market.Neutral, Note: "range converging, symmetric triangle"}, true
}

func compression(highs, lows []float64) (Signal, bool) {
	if len(highs) < minBarsCompression {
		return Signal{}, false
	}
	half := len(highs) / 2
	first := rangeWidth(highs[:half], lows[:half])
	second := rangeWidth(highs[half:], lows[half:])
	if first <= 0 || second >= first*squeezeRatio {
		return Signal{}, false
	}
	return Signal{
		Kind: Compression,
		Bias: market.Neutral,
		Note: fmt.Sprintf("volatility squeezed to %.0f%% of prior range", second/first*100),
	}, true
}

func rangeWidth(highs, lows []float64) float64 {
	top := maxOf(highs)
	if top == 0 {
		return 0
	}
	return (top - minOf(lows)) / top
}

// argmax skips indices within [skipLo, skipHi].
func argmax(values []float64, skipLo, skipHi int) int {
	idx := -1
	best := math.Inf(-1)
	for i, v := range values {
		if i >= skipLo && i <= skipHi {
			continue
		}
		if v > best {
			best = v
			idx = i
		}
	}
	return idx
}

func minOf(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		m = math.Min(m, v)
	}
	return m
}

func maxOf(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		m = math.Max(m, v)
	}
	return m
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
