package market

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"sentinel/internal/pkg/symbol"
)

// Snapshot is the immutable market view evaluated in one decision cycle.
// Indicator series are oldest first.
type Snapshot struct {
	Symbol     string    `json:"symbol" validate:"required,max=32"`
	Timeframe  string    `json:"timeframe" default:"M15" validate:"required,max=8"`
	AccountID  string    `json:"account_id,omitempty"`
	Side       Side      `json:"side,omitempty" validate:"omitempty,oneof=buy sell"`
	Price      float64   `json:"price" validate:"gt=0"`
	Open       float64   `json:"open" validate:"gte=0"`
	High       float64   `json:"high" validate:"gte=0"`
	Low        float64   `json:"low" validate:"gte=0"`
	Close      float64   `json:"close" validate:"gte=0"`
	TickVolume float64   `json:"tick_volume" validate:"gte=0"`
	Spread     float64   `json:"spread" validate:"gte=0"`
	Balance    float64   `json:"balance" validate:"gte=0"`
	RSI        *float64  `json:"rsi,omitempty" validate:"omitempty,gte=0,lte=100"`
	ATR        *float64  `json:"atr,omitempty" validate:"omitempty,gte=0"`
	MAFast     []float64 `json:"ma_fast,omitempty"`
	MASlow     []float64 `json:"ma_slow,omitempty"`
	MATrend    []float64 `json:"ma_trend,omitempty"`
	Candles    []Candle  `json:"candles,omitempty" validate:"omitempty,dive"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field bounds and returns a single readable error.
func (s Snapshot) Validate(ctx context.Context) error {
	if err := validatorInstance().StructCtx(ctx, s); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid snapshot: %s", strings.Join(parts, "; "))
		}
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	if s.High > 0 && s.Low > 0 && s.High < s.Low {
		return fmt.Errorf("invalid snapshot: high %.5f below low %.5f", s.High, s.Low)
	}
	return nil
}

// Key identifies the (symbol, timeframe) stream the snapshot belongs to.
func (s Snapshot) Key() string {
	return symbol.Normalize(s.Symbol) + "@" + strings.ToUpper(strings.TrimSpace(s.Timeframe))
}

// MADiff is fast minus slow MA on the newest sample, 0 when unknown.
func (s Snapshot) MADiff() float64 {
	fast, ok1 := Last(s.MAFast)
	slow, ok2 := Last(s.MASlow)
	if !ok1 || !ok2 {
		return 0
	}
	return fast - slow
}

// RSIValue returns the RSI or the neutral 50 when absent.
func (s Snapshot) RSIValue() float64 {
	if s.RSI == nil {
		return 50
	}
	return *s.RSI
}

// Features is the similarity vector [maDiff, rsi, tickVolume].
func (s Snapshot) Features() []float64 {
	return []float64{s.MADiff(), s.RSIValue(), s.TickVolume}
}
