package market

// Candle is one OHLCV bar. Time is the bar open as unix seconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open" validate:"gte=0"`
	High   float64 `json:"high" validate:"gte=0"`
	Low    float64 `json:"low" validate:"gte=0"`
	Close  float64 `json:"close" validate:"gte=0"`
	Volume float64 `json:"volume,omitempty" validate:"gte=0"`
}

func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Tail returns at most n trailing elements without copying.
func Tail[T any](s []T, n int) []T {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Last returns the newest value of an oldest-first series.
func Last(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}
