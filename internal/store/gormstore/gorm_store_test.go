package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/account"
	"sentinel/internal/market"
	"sentinel/internal/pkg/decimalx"
	"sentinel/internal/retrieval"
	"sentinel/internal/store"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(filepath.Join(t.TempDir(), "db", "sentinel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTradesLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	first, err := s.RecordTrade(ctx, store.Trade{
		Symbol:   "eurusd",
		Side:     market.SideBuy,
		Lot:      decimalx.MustParse("0.20"),
		Entry:    decimalx.MustParse("1.1000"),
		StopLoss: decimalx.MustParse("1.0950"),
		Features: []float64{0.001, 55, 1200},
		OpenedAt: base,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "EURUSD", first.Symbol)
	assert.Equal(t, retrieval.OutcomeOpen, first.Outcome)

	_, err = s.RecordTrade(ctx, store.Trade{Symbol: "EURUSD", Side: market.SideSell, OpenedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.RecordTrade(ctx, store.Trade{Symbol: "XAUUSD", Side: market.SideBuy, OpenedAt: base.Add(2 * time.Hour)})
	require.NoError(t, err)

	require.NoError(t, s.CloseTrade(ctx, first.ID, retrieval.OutcomeWin, 42.5, base.Add(30*time.Minute)))
	got, err := s.GetTrade(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, retrieval.OutcomeWin, got.Outcome)
	assert.Equal(t, 42.5, got.Profit)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, got.Lot.Equal(decimalx.MustParse("0.2")))
	assert.Equal(t, []float64{0.001, 55, 1200}, got.Features)

	trades, err := s.ListTrades(ctx, "EURUSD", 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "sell", trades[0].Side)
	assert.Equal(t, first.ID, trades[1].ID)

	all, err := s.ListTrades(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	last, ok, err := s.LastTradeTime(ctx, "EURUSD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(base.Add(time.Hour)))

	_, ok, err = s.LastTradeTime(ctx, "GBPUSD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTradeValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.RecordTrade(ctx, store.Trade{Symbol: "EURUSD", Side: "long"})
	assert.Error(t, err)
	_, err = s.RecordTrade(ctx, store.Trade{Side: market.SideBuy})
	assert.Error(t, err)
	assert.ErrorIs(t, s.CloseTrade(ctx, "missing", retrieval.OutcomeLoss, -1, time.Time{}), store.ErrNotFound)
	assert.Error(t, s.CloseTrade(ctx, "missing", "maybe", 0, time.Time{}))
	_, err = s.GetTrade(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConceptUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertConcept(ctx, retrieval.Concept{ID: "a1", Source: "trend.md", Title: "Trend Following Rules", Text: "v1"}))
	require.NoError(t, s.UpsertConcept(ctx, retrieval.Concept{ID: "a1", Source: "trend.md", Title: "Trend Following Rules", Text: "v2"}))
	require.NoError(t, s.UpsertConcept(ctx, retrieval.Concept{ID: "b2", Source: "rev.md", Title: "Reversal Rules", Text: "fade"}))

	concepts, err := s.ListConcepts(ctx)
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	assert.Equal(t, "Reversal Rules", concepts[0].Title)
	assert.Equal(t, "v2", concepts[1].Text)
}

func TestAccountsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	mgr := account.NewManager(s, func() time.Time { return now })

	p := account.DefaultProfile(decimalx.MustParse("1500.50"))
	p.AccountID = "cent-1"
	p.AccountType = "cent"
	_, err := mgr.Update(ctx, p)
	require.NoError(t, err)
	p.Balance = decimalx.MustParse("1600")
	_, err = mgr.Update(ctx, p)
	require.NoError(t, err)

	loaded, err := s.LoadAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].Balance.Equal(decimalx.MustParse("1600")))
	assert.True(t, loaded[0].IsMicro)
	assert.True(t, loaded[0].UpdatedAt.Equal(now))

	fresh := account.NewManager(s, func() time.Time { return now })
	require.NoError(t, fresh.Load(ctx))
	_, ok, err := fresh.Get(ctx, "cent-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, fresh.Remove(ctx, "cent-1"))
	loaded, err = s.LoadAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
