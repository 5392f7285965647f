package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/market"
)

func rampCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		p := float64(i + 1)
		out[i] = market.Candle{Time: int64(i * 60), Open: p - 0.5, High: p + 1, Low: p - 1, Close: p}
	}
	return out
}

func TestComputeSMAAlignment(t *testing.T) {
	vals := Compute(rampCandles(30), Settings{FastPeriod: 3, SlowPeriod: 5, TrendPeriod: 50})
	require.Len(t, vals.MAFast, 28)
	assert.InDelta(t, 29.0, vals.MAFast[len(vals.MAFast)-1], 1e-9)
	assert.InDelta(t, 2.0, vals.MAFast[0], 1e-9)
	require.Len(t, vals.MASlow, 26)
	assert.InDelta(t, 28.0, vals.MASlow[len(vals.MASlow)-1], 1e-9)
	assert.Nil(t, vals.MATrend, "not enough candles for the trend MA")
	require.NotNil(t, vals.RSI)
	assert.InDelta(t, 100.0, *vals.RSI, 1e-6)
	require.NotNil(t, vals.ATR)
}

func TestEnrichKeepsCallerValues(t *testing.T) {
	rsi := 42.0
	snap := market.Snapshot{Symbol: "EURUSD", Timeframe: "H1", RSI: &rsi, MAFast: []float64{1, 2}, Candles: rampCandles(60)}
	out := NewEnricher(Settings{FastPeriod: 3, SlowPeriod: 5, TrendPeriod: 10}, nil).Enrich(snap)
	assert.Equal(t, []float64{1, 2}, out.MAFast)
	assert.Equal(t, 42.0, *out.RSI)
	assert.NotEmpty(t, out.MASlow)
	assert.NotEmpty(t, out.MATrend)
	assert.NotNil(t, out.ATR)
}

func TestCacheExpiresByClockAndBar(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	c := NewCache(time.Minute, clock)
	c.Put("eurusd", "h1", 100, Values{MAFast: []float64{1}})

	v, ok := c.Get("EURUSD", "H1", 100)
	require.True(t, ok)
	assert.Equal(t, []float64{1}, v.MAFast)

	_, ok = c.Get("EURUSD", "H1", 160)
	assert.False(t, ok, "new bar invalidates the entry")

	c.Put("EURUSD", "H1", 160, Values{})
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 0, c.Len())
}

func TestEnricherUsesCache(t *testing.T) {
	c := NewCache(time.Hour, nil)
	candles := rampCandles(40)
	c.Put("XAUUSD", "M15", candles[len(candles)-1].Time, Values{MAFast: []float64{7}, MASlow: []float64{6}})
	e := NewEnricher(DefaultSettings(), c)
	out := e.Enrich(market.Snapshot{Symbol: "XAUUSD", Timeframe: "M15", Candles: candles})
	assert.Equal(t, []float64{7}, out.MAFast)
	assert.Equal(t, []float64{6}, out.MASlow)
	assert.Nil(t, out.RSI)
}
