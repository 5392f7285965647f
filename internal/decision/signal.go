package decision

import (
	"math"

	"github.com/shopspring/decimal"

	"sentinel/internal/market"
)

type Action string

const (
	ActionHold       Action = "HOLD"
	ActionBuy        Action = "BUY"
	ActionSell       Action = "SELL"
	ActionStrongBuy  Action = "STRONG_BUY"
	ActionStrongSell Action = "STRONG_SELL"
)

func (a Action) IsBuy() bool  { return a == ActionBuy || a == ActionStrongBuy }
func (a Action) IsSell() bool { return a == ActionSell || a == ActionStrongSell }

// IsEntry reports any action that opens a position.
func (a Action) IsEntry() bool { return a.IsBuy() || a.IsSell() }

func (a Action) Direction() market.Direction {
	switch {
	case a.IsBuy():
		return market.Bullish
	case a.IsSell():
		return market.Bearish
	}
	return market.Neutral
}

// TradeSignal is the single output of an evaluation.
type TradeSignal struct {
	TraceID    string          `json:"trace_id,omitempty"`
	Symbol     string          `json:"symbol"`
	Action     Action          `json:"action"`
	LotSize    decimal.Decimal `json:"lot_size"`
	StopLoss   decimal.Decimal `json:"stop_loss"`
	TakeProfit decimal.Decimal `json:"take_profit"`
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
}

// Hold builds a zero-lot hold signal.
func Hold(symbol string, confidence float64, reason string) TradeSignal {
	return TradeSignal{
		Symbol:     symbol,
		Action:     ActionHold,
		LotSize:    decimal.Zero,
		StopLoss:   decimal.Zero,
		TakeProfit: decimal.Zero,
		Confidence: ClampConfidence(confidence),
		Reason:     reason,
	}
}

func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
