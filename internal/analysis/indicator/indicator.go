package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"sentinel/internal/market"
)

// Settings holds the indicator periods used when a snapshot arrives
// without precomputed values.
type Settings struct {
	FastPeriod  int `json:"fast_period"`
	SlowPeriod  int `json:"slow_period"`
	TrendPeriod int `json:"trend_period"`
	RSIPeriod   int `json:"rsi_period"`
	ATRPeriod   int `json:"atr_period"`
}

func DefaultSettings() Settings {
	return Settings{FastPeriod: 20, SlowPeriod: 50, TrendPeriod: 200, RSIPeriod: 14, ATRPeriod: 14}
}

func (s Settings) normalized() Settings {
	def := DefaultSettings()
	if s.FastPeriod <= 0 {
		s.FastPeriod = def.FastPeriod
	}
	if s.SlowPeriod <= 0 {
		s.SlowPeriod = def.SlowPeriod
	}
	if s.TrendPeriod <= 0 {
		s.TrendPeriod = def.TrendPeriod
	}
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = def.RSIPeriod
	}
	if s.ATRPeriod <= 0 {
		s.ATRPeriod = def.ATRPeriod
	}
	return s
}

// Values are the derived series for one candle history. Series lengths
// differ; each starts at the first bar with a full lookback window.
type Values struct {
	MAFast  []float64 `json:"ma_fast,omitempty"`
	MASlow  []float64 `json:"ma_slow,omitempty"`
	MATrend []float64 `json:"ma_trend,omitempty"`
	RSI     *float64  `json:"rsi,omitempty"`
	ATR     *float64  `json:"atr,omitempty"`
}

// Compute derives SMA fast/slow/trend, RSI and ATR from the candles.
// Indicators without enough history are left empty.
func Compute(candles []market.Candle, cfg Settings) Values {
	cfg = cfg.normalized()
	closes := market.Closes(candles)
	var out Values
	out.MAFast = sma(closes, cfg.FastPeriod)
	out.MASlow = sma(closes, cfg.SlowPeriod)
	out.MATrend = sma(closes, cfg.TrendPeriod)
	if len(closes) > cfg.RSIPeriod {
		out.RSI = lastPtr(talib.Rsi(closes, cfg.RSIPeriod))
	}
	if len(candles) > cfg.ATRPeriod {
		out.ATR = lastPtr(talib.Atr(market.Highs(candles), market.Lows(candles), closes, cfg.ATRPeriod))
	}
	return out
}

func sma(closes []float64, period int) []float64 {
	if period <= 1 || len(closes) < period {
		return nil
	}
	return sanitizeSeries(talib.Sma(closes, period)[period-1:])
}

func sanitizeSeries(src []float64) []float64 {
	out := make([]float64, 0, len(src))
	for _, v := range src {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func lastPtr(series []float64) *float64 {
	for i := len(series) - 1; i >= 0; i-- {
		v := series[i]
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return &v
		}
	}
	return nil
}
