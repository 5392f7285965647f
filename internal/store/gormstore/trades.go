package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"sentinel/internal/market"
	"sentinel/internal/pkg/symbol"
	"sentinel/internal/retrieval"
	"sentinel/internal/store"
)

var _ store.TradeRecorder = (*GormStore)(nil)

func newTradeModel(t store.Trade, now time.Time) (tradeModel, error) {
	features, err := json.Marshal(t.Features)
	if err != nil {
		return tradeModel{}, err
	}
	return tradeModel{
		ID:            t.ID,
		TraceID:       t.TraceID,
		AccountID:     t.AccountID,
		Symbol:        symbol.Normalize(t.Symbol),
		Side:          string(t.Side),
		Lot:           t.Lot.String(),
		EntryPrice:    t.Entry.String(),
		StopLoss:      t.StopLoss.String(),
		TakeProfit:    t.TakeProfit.String(),
		Outcome:       t.Outcome,
		Profit:        t.Profit,
		Features:      datatypes.JSON(features),
		Notes:         t.Notes,
		OpenedAtUnix:  t.OpenedAt.UnixMilli(),
		ClosedAtUnix:  unixPtr(t.ClosedAt),
		CreatedAtUnix: now.UnixMilli(),
		UpdatedAtUnix: now.UnixMilli(),
	}, nil
}

func tradeFromModel(m tradeModel) store.Trade {
	var features []float64
	if len(m.Features) > 0 {
		_ = json.Unmarshal(m.Features, &features)
	}
	return store.Trade{
		ID:         m.ID,
		TraceID:    m.TraceID,
		AccountID:  m.AccountID,
		Symbol:     m.Symbol,
		Side:       market.Side(m.Side),
		Lot:        parseDecimal(m.Lot),
		Entry:      parseDecimal(m.EntryPrice),
		StopLoss:   parseDecimal(m.StopLoss),
		TakeProfit: parseDecimal(m.TakeProfit),
		Outcome:    m.Outcome,
		Profit:     m.Profit,
		Features:   features,
		Notes:      m.Notes,
		OpenedAt:   time.UnixMilli(m.OpenedAtUnix),
		ClosedAt:   timePtr(m.ClosedAtUnix),
	}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RecordTrade stores an executed trade, assigning an id and open time when
// missing.
func (s *GormStore) RecordTrade(ctx context.Context, t store.Trade) (store.Trade, error) {
	if err := t.Validate(); err != nil {
		return store.Trade{}, err
	}
	now := s.now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.OpenedAt.IsZero() {
		t.OpenedAt = now
	}
	if t.Outcome == "" {
		t.Outcome = retrieval.OutcomeOpen
	}
	m, err := newTradeModel(t, now)
	if err != nil {
		return store.Trade{}, err
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return store.Trade{}, fmt.Errorf("record trade: %w", err)
	}
	return tradeFromModel(m), nil
}

func (s *GormStore) CloseTrade(ctx context.Context, id, outcome string, profit float64, at time.Time) error {
	switch outcome {
	case retrieval.OutcomeWin, retrieval.OutcomeLoss:
	default:
		return fmt.Errorf("close outcome must be win or loss, got %q", outcome)
	}
	if at.IsZero() {
		at = s.now()
	}
	closed := at.UnixMilli()
	res := s.db.WithContext(ctx).Model(&tradeModel{}).Where("id = ?", id).Updates(map[string]any{
		"outcome":    outcome,
		"profit":     profit,
		"closed_at":  closed,
		"updated_at": s.now().UnixMilli(),
	})
	if res.Error != nil {
		return fmt.Errorf("close trade %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("close trade %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *GormStore) GetTrade(ctx context.Context, id string) (store.Trade, error) {
	var m tradeModel
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Trade{}, store.ErrNotFound
	}
	if err != nil {
		return store.Trade{}, err
	}
	return tradeFromModel(m), nil
}

// ListTrades implements retrieval.Source, newest first. An empty symbol
// lists every symbol.
func (s *GormStore) ListTrades(ctx context.Context, sym string, limit int) ([]retrieval.PastTrade, error) {
	q := s.db.WithContext(ctx).Model(&tradeModel{}).Order("opened_at DESC")
	if sym = symbol.Normalize(sym); sym != "" {
		q = q.Where("symbol = ?", sym)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []tradeModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]retrieval.PastTrade, 0, len(rows))
	for _, r := range rows {
		out = append(out, tradeFromModel(r).PastTrade())
	}
	return out, nil
}

// LastTradeTime implements the judge cooldown lookup.
func (s *GormStore) LastTradeTime(ctx context.Context, sym string) (time.Time, bool, error) {
	var m tradeModel
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol.Normalize(sym)).
		Order("opened_at DESC").
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(m.OpenedAtUnix), true, nil
}
