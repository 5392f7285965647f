// Package store holds the persisted trade record shared by the storage
// backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sentinel/internal/market"
	"sentinel/internal/retrieval"
)

var ErrNotFound = errors.New("not found")

// Trade is an executed position as reported back by the execution side.
type Trade struct {
	ID         string          `json:"id"`
	TraceID    string          `json:"trace_id,omitempty"`
	AccountID  string          `json:"account_id,omitempty"`
	Symbol     string          `json:"symbol"`
	Side       market.Side     `json:"side"`
	Lot        decimal.Decimal `json:"lot"`
	Entry      decimal.Decimal `json:"entry_price"`
	StopLoss   decimal.Decimal `json:"stop_loss"`
	TakeProfit decimal.Decimal `json:"take_profit"`
	Outcome    string          `json:"outcome"`
	Profit     float64         `json:"profit"`
	Features   []float64       `json:"features,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	OpenedAt   time.Time       `json:"opened_at"`
	ClosedAt   *time.Time      `json:"closed_at,omitempty"`
}

func (t Trade) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("trade symbol is empty")
	}
	switch t.Side {
	case market.SideBuy, market.SideSell:
	default:
		return fmt.Errorf("trade side %q must be buy or sell", t.Side)
	}
	switch t.Outcome {
	case "", retrieval.OutcomeOpen, retrieval.OutcomeWin, retrieval.OutcomeLoss:
	default:
		return fmt.Errorf("unknown trade outcome %q", t.Outcome)
	}
	if t.Lot.IsNegative() {
		return fmt.Errorf("trade lot is negative")
	}
	return nil
}

// PastTrade is the retrieval view of the trade.
func (t Trade) PastTrade() retrieval.PastTrade {
	return retrieval.PastTrade{
		ID:       t.ID,
		Symbol:   t.Symbol,
		Side:     string(t.Side),
		Outcome:  t.Outcome,
		Profit:   t.Profit,
		Features: t.Features,
		OpenedAt: t.OpenedAt,
		Notes:    t.Notes,
	}
}

// TradeRecorder is implemented by stores that track executions.
type TradeRecorder interface {
	RecordTrade(ctx context.Context, t Trade) (Trade, error)
	CloseTrade(ctx context.Context, id, outcome string, profit float64, at time.Time) error
}
