package veto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/market"
)

func flatCandles(n int, price float64) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = market.Candle{Time: int64(i), Open: price, High: price + 0.001*float64(i), Low: price - 0.001*float64(i), Close: price}
	}
	return out
}

func candlesFromHighs(highs []float64) []market.Candle {
	out := make([]market.Candle, len(highs))
	for i, h := range highs {
		out[i] = market.Candle{Time: int64(i), Open: h - 0.2, High: h, Low: h - 0.5, Close: h - 0.1}
	}
	return out
}

func TestAnalyzeInsufficientData(t *testing.T) {
	e := NewEngine(0.7)
	for _, n := range []int{0, 1, 5, 19} {
		res := e.Analyze(market.Snapshot{Candles: flatCandles(n, 1.1), MAFast: []float64{1, 2, 3, 4, 5}, MASlow: []float64{5, 4, 3, 2, 1}})
		assert.Equal(t, market.Neutral, res.Direction)
		assert.Zero(t, res.Strength)
		assert.False(t, res.StructureValid)
		assert.Equal(t, ReasonInsufficientData, res.VetoReason)
		veto, _ := res.ShouldVetoBuy()
		assert.False(t, veto, "insufficient data never vetoes")
		veto, _ = res.ShouldVetoSell()
		assert.False(t, veto)
	}
}

func TestStrongBearishVetoesBuy(t *testing.T) {
	for _, s := range []float64{0.71, 0.85, 0.99, 1.0} {
		res := Result{Direction: market.Bearish, Strength: s, StructureValid: true, Threshold: 0.7}
		veto, reason := res.ShouldVetoBuy()
		assert.True(t, veto)
		assert.Contains(t, reason, "Bearish")
		sellVeto, _ := res.ShouldVetoSell()
		assert.False(t, sellVeto)
	}
	res := Result{Direction: market.Bearish, Strength: 0.7, StructureValid: true, Threshold: 0.7}
	veto, _ := res.ShouldVetoBuy()
	assert.False(t, veto, "threshold is exclusive")
}

func TestInvalidStructureVetoesBothSides(t *testing.T) {
	res := Result{Direction: market.Bullish, Strength: 0.2, StructureValid: false, Threshold: 0.7}
	buy, reason := res.ShouldVetoBuy()
	assert.True(t, buy)
	assert.Equal(t, "VETO: Invalid market structure", reason)
	sell, _ := res.ShouldVetoSell()
	assert.True(t, sell)
	neutral, _ := res.VetoFor(market.Neutral)
	assert.True(t, neutral)
}

func TestAnalyzeFreshCross(t *testing.T) {
	snap := market.Snapshot{
		Candles: flatCandles(25, 1.0),
		MAFast:  []float64{1.0, 1.0, 1.0, 0.99, 1.05},
		MASlow:  []float64{1.0, 1.0, 1.0, 1.0, 1.0},
	}
	res := NewEngine(0.7).Analyze(snap)
	assert.Equal(t, market.Bullish, res.Direction)
	assert.InDelta(t, 0.1, res.Strength, 1e-9)
	assert.Equal(t, AlignmentCrossing, res.Alignment)

	snap.MATrend = []float64{0.9}
	res = NewEngine(0.7).Analyze(snap)
	assert.InDelta(t, 0.13, res.Strength, 1e-9, "aligned with the trend MA")
}

func TestAnalyzeSustainedBearish(t *testing.T) {
	snap := market.Snapshot{
		Candles: flatCandles(30, 1.5),
		MAFast:  []float64{2.0, 1.9, 1.8, 1.7, 1.6},
		MASlow:  []float64{2.5, 2.5, 2.5, 2.5, 2.5},
	}
	res := NewEngine(0.7).Analyze(snap)
	assert.Equal(t, market.Bearish, res.Direction)
	assert.InDelta(t, 0.9, res.Strength, 1e-9)
	assert.Equal(t, AlignmentMixed, res.Alignment)
	assert.Equal(t, "Strong bearish trend - BUY signals blocked", res.VetoReason)
	assert.Equal(t, market.TrendStrongBearish, res.Trend())
	veto, reason := res.ShouldVetoBuy()
	assert.True(t, veto)
	assert.Equal(t, "VETO: Bearish trend on higher timeframe (strength: 0.90)", reason)
}

func TestStructureLowerHighInvalidatesBullish(t *testing.T) {
	highs := []float64{1, 2, 3, 10, 3, 2, 1, 2, 3, 8, 3, 2, 1, 1.5, 1.2, 1.1, 1.0, 0.9, 0.8, 0.7}
	snap := market.Snapshot{
		Candles: candlesFromHighs(highs),
		MAFast:  []float64{1.2, 1.3},
		MASlow:  []float64{1.0, 1.1},
		MATrend: []float64{0.9},
	}
	res := NewEngine(0.7).Analyze(snap)
	require.Equal(t, market.Bullish, res.Direction)
	assert.False(t, res.StructureValid)
	assert.Equal(t, []float64{10, 8}, res.Resistance)
	assert.Equal(t, []float64{0.5, 0.5}, res.Support)
	assert.Equal(t, AlignmentAlignedBullish, res.Alignment)
	veto, reason := res.ShouldVetoBuy()
	assert.True(t, veto)
	assert.Contains(t, reason, "Invalid market structure")
}

func TestStructureFallbackLevels(t *testing.T) {
	snap := market.Snapshot{Candles: flatCandles(20, 2.0)}
	res := NewEngine(0).Analyze(snap)
	assert.Equal(t, DefaultThreshold, res.Threshold)
	assert.Equal(t, market.Neutral, res.Direction)
	assert.True(t, res.StructureValid)
	require.Len(t, res.Support, 1)
	require.Len(t, res.Resistance, 1)
	assert.InDelta(t, 2.0-0.019, res.Support[0], 1e-9)
	assert.InDelta(t, 2.0+0.019, res.Resistance[0], 1e-9)
}

func TestTrendScoreTable(t *testing.T) {
	tests := []struct {
		dir      market.Direction
		strength float64
		want     market.Trend
		score    float64
	}{
		{market.Bullish, 0.8, market.TrendStrongBullish, 0.4},
		{market.Bullish, 0.5, market.TrendBullish, 0.3},
		{market.Neutral, 0, market.TrendNeutral, 0},
		{market.Bearish, 0.5, market.TrendBearish, -0.3},
		{market.Bearish, 0.95, market.TrendStrongBearish, -0.4},
	}
	for _, tc := range tests {
		t.Run(tc.want.String(), func(t *testing.T) {
			res := Result{Direction: tc.dir, Strength: tc.strength, Threshold: 0.7}
			assert.Equal(t, tc.want, res.Trend())
			assert.Equal(t, tc.score, res.Score())
		})
	}
}

func TestContextMentionsLevelsAndVeto(t *testing.T) {
	res := Result{Direction: market.Bearish, Strength: 0.9, StructureValid: true, Threshold: 0.7,
		Resistance: []float64{1.2, 1.15}, Support: []float64{1.0}, Alignment: AlignmentMixed,
		VetoReason: "Strong bearish trend - BUY signals blocked"}
	ctx := res.Context()
	assert.Contains(t, ctx, "Trend Direction: BEARISH")
	assert.Contains(t, ctx, "Resistance Levels: [1.20000, 1.15000]")
	assert.Contains(t, ctx, "VETO ACTIVE")

	lvl, ok := res.NearestResistance(1.12)
	require.True(t, ok)
	assert.Equal(t, 1.15, lvl)
}
