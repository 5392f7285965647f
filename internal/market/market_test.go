package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotValidate(t *testing.T) {
	ok := Snapshot{Symbol: "EURUSD", Timeframe: "M15", Price: 1.1, High: 1.2, Low: 1.0}
	require.NoError(t, ok.Validate(context.Background()))

	t.Run("bounds", func(t *testing.T) {
		bad := ok
		bad.Price = 0
		bad.Side = "long"
		err := bad.Validate(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Snapshot.Price failed gt")
		assert.Contains(t, err.Error(), "Snapshot.Side failed oneof")
	})
	t.Run("high below low", func(t *testing.T) {
		bad := ok
		bad.High, bad.Low = 1.0, 1.2
		assert.EqualError(t, bad.Validate(context.Background()), "invalid snapshot: high 1.00000 below low 1.20000")
	})
	t.Run("rsi range", func(t *testing.T) {
		bad := ok
		v := 120.0
		bad.RSI = &v
		assert.Error(t, bad.Validate(context.Background()))
	})
}

func TestSnapshotKeyAndFeatures(t *testing.T) {
	s := Snapshot{Symbol: "eurusd.m", Timeframe: "h1", MAFast: []float64{1, 1.2}, MASlow: []float64{1, 1.1}, TickVolume: 300}
	assert.Equal(t, "EURUSD@H1", s.Key())
	assert.InDelta(t, 0.1, s.MADiff(), 1e-9)
	assert.Equal(t, []float64{s.MADiff(), 50, 300}, s.Features())
}

func TestClassifyTrend(t *testing.T) {
	assert.Equal(t, TrendStrongBullish, ClassifyTrend(Bullish, 0.9, 0.8))
	assert.Equal(t, TrendBearish, ClassifyTrend(Bearish, 0.5, 0.8))
	assert.Equal(t, TrendNeutral, ClassifyTrend(Neutral, 1, 0.8))
	assert.InDelta(t, -0.4, TrendStrongBearish.Score(), 1e-9)

	var tr Trend
	require.NoError(t, tr.UnmarshalText([]byte("strong_bullish")))
	assert.Equal(t, TrendStrongBullish, tr)
	assert.Error(t, tr.UnmarshalText([]byte("sideways")))
}

func TestSummarize(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC).Unix()
	candles := []Candle{
		{Time: start, Open: 1.1000, High: 1.1020, Low: 1.0990, Close: 1.1000},
		{Time: start + 900, Open: 1.1000, High: 1.1050, Low: 1.0980, Close: 1.1040},
		{Time: start + 1800, Open: 1.1040, High: 1.1060, Low: 1.1030, Close: 1.1055},
	}
	got := Summarize(candles, "M15")
	assert.Equal(t, "close 1.10550 (+0.50% over 3 M15), range 1.09800-1.10600, 03-01 09:00Z to 03-01 09:30Z", got)
	assert.Empty(t, Summarize(nil, "M15"))
	assert.Equal(t, "-", Candle{}.TimeString())
}
