package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/config"
	"sentinel/internal/decision"
	"sentinel/internal/gateway/notifier"
	"sentinel/internal/market"
	"sentinel/internal/store/gormstore"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Storage.AuditDB = filepath.Join(dir, "audit.db")
	cfg.Storage.TradesDB = filepath.Join(dir, "trades.db")
	cfg.App.HTTPAddr = "127.0.0.1:0"
	return cfg
}

func TestNewAppEvaluatesWithoutLLM(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	sig := a.Evaluate(context.Background(), market.Snapshot{Symbol: "EURUSD", Timeframe: "M15"})
	assert.Equal(t, decision.ActionHold, sig.Action)
	assert.NotEmpty(t, sig.Reason)
	assert.Equal(t, 1, a.Monitor().Stats().Total)
}

func TestIngestStoresConcepts(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trend.md"), []byte("# Trend following\nTrade with the trend."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.bin"), []byte{0x1}, 0o644))

	n, err := a.Ingest(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCloseIsIdempotent(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	a.Close()
	assert.NotPanics(t, a.Close)
}

func TestProvideJudgeLLMModeNeedsGenerator(t *testing.T) {
	cfg := testConfig(t)
	cfg.Judge.ArbitrationMode = "llm"
	_, _, err := ProvideJudge(cfg, JudgeDeps{Monitor: ProvideMonitor(cfg), Metrics: ProvideMetrics()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.enabled")
}

func TestJudgeParamsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Trading.RiskMode = "sniper"
	cfg.Trading.StopLossPct = 0.015
	p, err := judgeParams(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sniper", string(p.RiskMode))
	assert.Equal(t, "0.015", p.StopLossPct.String())
	assert.Equal(t, cfg.Judge.CooldownMinutes, p.CooldownMinutes)
}

func TestOptionalProvidersDisabled(t *testing.T) {
	cfg := testConfig(t)
	gs, cleanup, err := ProvideGormStore(cfg)
	require.NoError(t, err)
	defer cleanup()

	rc, rcCleanup, err := ProvideRedisCooldown(context.Background(), cfg, gs)
	require.NoError(t, err)
	rcCleanup()
	assert.Nil(t, rc)
	assert.IsType(t, &gormstore.GormStore{}, ProvideCooldownStore(rc, gs))
	assert.Nil(t, ProvideTradeMarker(rc))

	pub, pubCleanup, err := ProvidePublisher(cfg)
	require.NoError(t, err)
	pubCleanup()
	assert.Nil(t, pub)

	n, err := ProvideNotifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, notifier.LogNotifier{}, n)

	st, stCleanup, err := ProvideAuditStore(cfg, gs)
	require.NoError(t, err)
	defer stCleanup()
	assert.Equal(t, 1, ProvideDispatcher(cfg, st, pub, ProvideMetrics()).Sinks())
}

func TestAuditSharesTradeDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.AuditDB = cfg.Storage.TradesDB
	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)

	a.Evaluate(context.Background(), market.Snapshot{Symbol: "EURUSD", Timeframe: "M15"})
	assert.NotPanics(t, a.Close)
}

func TestSummaryRender(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kafka.Enabled = true
	cfg.Knowledge.Dir = "docs"
	cfg.Knowledge.Watch = true
	out := ProvideSummary(cfg).Render()
	assert.Contains(t, out, "STARTUP SUMMARY")
	assert.Contains(t, out, "llm:        disabled")
	assert.Contains(t, out, "kafka:sentinel.decisions")
	assert.Contains(t, out, "docs (watching)")
	assert.Contains(t, out, "open after 5 failures")
}
