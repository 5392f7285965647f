package market

import "fmt"

type Direction string

const (
	Neutral Direction = "neutral"
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

func (d Direction) Label() string {
	switch d {
	case Bullish:
		return "Bullish"
	case Bearish:
		return "Bearish"
	default:
		return "Neutral"
	}
}

type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Direction maps a requested side onto the trend it bets on.
func (s Side) Direction() Direction {
	switch s {
	case SideBuy:
		return Bullish
	case SideSell:
		return Bearish
	default:
		return Neutral
	}
}

// Trend is the five-step trend classification used in scoring.
type Trend int

const (
	TrendStrongBearish Trend = iota - 2
	TrendBearish
	TrendNeutral
	TrendBullish
	TrendStrongBullish
)

var trendScores = map[Trend]float64{
	TrendStrongBullish: 0.4,
	TrendBullish:       0.3,
	TrendNeutral:       0,
	TrendBearish:       -0.3,
	TrendStrongBearish: -0.4,
}

var trendNames = map[Trend]string{
	TrendStrongBullish: "strong_bullish",
	TrendBullish:       "bullish",
	TrendNeutral:       "neutral",
	TrendBearish:       "bearish",
	TrendStrongBearish: "strong_bearish",
}

func (t Trend) Score() float64 { return trendScores[t] }

func (t Trend) String() string {
	if name, ok := trendNames[t]; ok {
		return name
	}
	return fmt.Sprintf("trend(%d)", int(t))
}

func (t Trend) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Trend) UnmarshalText(b []byte) error {
	for k, v := range trendNames {
		if v == string(b) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown trend %q", string(b))
}

// ClassifyTrend buckets a direction and strength. Strength above strong is
// a strong trend.
func ClassifyTrend(d Direction, strength, strong float64) Trend {
	switch d {
	case Bullish:
		if strength > strong {
			return TrendStrongBullish
		}
		return TrendBullish
	case Bearish:
		if strength > strong {
			return TrendStrongBearish
		}
		return TrendBearish
	default:
		return TrendNeutral
	}
}
