package debate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sentinel/internal/analysis/pattern"
	"sentinel/internal/analysis/veto"
	"sentinel/internal/decision"
	"sentinel/internal/gateway/provider"
	"sentinel/internal/market"
	"sentinel/internal/pkg/decimalx"
	"sentinel/internal/retrieval"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) ID() string { return "mock" }

func (m *mockGenerator) Generate(ctx context.Context, p provider.Prompt) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func rsi(v float64) *float64 { return &v }

func TestWeightedConfidence(t *testing.T) {
	t.Run("weighted mean", func(t *testing.T) {
		got := WeightedConfidence([]Argument{
			{Confidence: 0.6, Weight: 0.3},
			{Confidence: 0.7, Weight: 0.25},
		})
		assert.InDelta(t, (0.6*0.3+0.7*0.25)/0.55, got, 1e-9)
	})
	t.Run("empty is neutral", func(t *testing.T) {
		assert.Equal(t, 0.5, WeightedConfidence(nil))
	})
	t.Run("zero weight is neutral", func(t *testing.T) {
		assert.Equal(t, 0.5, WeightedConfidence([]Argument{{Confidence: 0.9, Weight: 0}}))
	})
}

func TestProAgentArguments(t *testing.T) {
	in := Input{
		Snapshot: market.Snapshot{Symbol: "EURUSD", Price: 1.1, Open: 1.09, Close: 1.1, RSI: rsi(50)},
		Tier:     veto.Result{Direction: market.Bullish, Strength: 0.6, StructureValid: true},
		History: []retrieval.PastTrade{
			{Outcome: retrieval.OutcomeWin},
			{Outcome: retrieval.OutcomeWin},
			{Outcome: retrieval.OutcomeLoss},
		},
	}
	out, err := NewProAgent(nil).Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, SidePro, out.Agent)
	assert.Equal(t, market.Bullish, out.Bias)
	require.Len(t, out.Arguments, 4)
	assert.Equal(t, []string{
		"Bullish price action",
		"RSI in optimal zone",
		"Higher timeframe trend is bullish",
		"Similar setups worked before",
	}, out.KeyPoints)
	assert.InDelta(t, 0.8, out.Arguments[2].Confidence, 1e-9)
	assert.InDelta(t, 2.0/3.0, out.Arguments[3].Confidence, 1e-9)
}

func TestConAgentArguments(t *testing.T) {
	in := Input{
		Snapshot: market.Snapshot{Symbol: "EURUSD", Price: 1.0990, Spread: 4.5, RSI: rsi(75)},
		Tier:     veto.Result{Direction: market.Bearish, Strength: 0.4, StructureValid: true, Resistance: []float64{1.2, 1.1}},
	}
	out, err := NewConAgent(nil).Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, market.Bearish, out.Bias)
	assert.Equal(t, []string{
		"High spread warning",
		"Near resistance",
		"RSI overbought",
		"Higher timeframe trend is bearish",
	}, out.KeyPoints)
	assert.Equal(t, "Potential trap scenario", out.RiskAssessment)
}

func TestPatternArguments(t *testing.T) {
	in := Input{
		Snapshot: market.Snapshot{Symbol: "EURUSD", Price: 1.1},
		Patterns: pattern.Result{Signals: []pattern.Signal{
			{Kind: pattern.DoubleBottom, Bias: market.Bullish, Level: 1.09, Note: "double bottom, support near 1.09000"},
			{Kind: pattern.DoubleTop, Bias: market.Bearish, Level: 1.12, Note: "double top, resistance near 1.12000"},
			{Kind: pattern.Compression, Bias: market.Neutral, Note: "volatility squeezed to 40% of prior range"},
		}},
	}
	pro, err := NewProAgent(nil).Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Double bottom support"}, pro.KeyPoints)

	con, err := NewConAgent(nil).Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Double top overhead", "Breakout direction unclear"}, con.KeyPoints)

	t.Run("broken support is not cited", func(t *testing.T) {
		in.Snapshot.Price = 1.08
		pro, err := NewProAgent(nil).Analyze(context.Background(), in)
		require.NoError(t, err)
		assert.Empty(t, pro.KeyPoints)
	})
}

func TestAgentWithoutArgumentsIsNeutral(t *testing.T) {
	out, err := NewConAgent(nil).Analyze(context.Background(), Input{Snapshot: market.Snapshot{Price: 1}})
	require.NoError(t, err)
	assert.Equal(t, market.Neutral, out.Bias)
	assert.Equal(t, 0.5, out.Confidence)
}

func TestAgentNarration(t *testing.T) {
	t.Run("keeps generated text", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.On("Generate", mock.Anything, mock.MatchedBy(func(p provider.Prompt) bool {
			return p.Purpose == "debate_pro" && p.System == proSystemPrompt
		})).Return("  strong case  ", nil).Once()

		out, err := NewProAgent(gen).Analyze(context.Background(), Input{Snapshot: market.Snapshot{Symbol: "EURUSD", Price: 1}})
		require.NoError(t, err)
		assert.Equal(t, "strong case", out.RawText)
		gen.AssertExpectations(t)
	})
	t.Run("provider failure keeps deterministic fields", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()

		in := Input{Snapshot: market.Snapshot{Price: 1, Spread: 5}}
		out, err := NewConAgent(gen).Analyze(context.Background(), in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "con agent")
		assert.Equal(t, "boom", out.Err)
		assert.InDelta(t, 0.8, out.Confidence, 1e-9)
	})
}

func TestArbitratorJudge(t *testing.T) {
	arb := NewArbitrator(0)
	analysis := func(c float64) Analysis { return Analysis{Confidence: c} }

	cases := []struct {
		name   string
		pro    float64
		con    float64
		tier   float64
		veto   bool
		winner Side
		final  string
		action decision.Action
	}{
		{"scenario D", 0.80, 0.55, 0.60, false, SidePro, "0.74", decision.ActionBuy},
		{"strong buy", 0.95, 0.20, 0.90, false, SidePro, "0.935", decision.ActionStrongBuy},
		{"con wins", 0.30, 0.90, 0.50, false, SideCon, "0.78", decision.ActionSell},
		{"neutral never trades", 0.60, 0.50, 1.00, false, SideNeutral, "0.685", decision.ActionHold},
		{"below threshold", 0.70, 0.40, 0.20, false, SidePro, "0.55", decision.ActionHold},
		{"exact threshold", 0.65, 0.30, 0.65, false, SidePro, "0.65", decision.ActionBuy},
		{"veto penalty", 0.80, 0.55, 0.60, true, SidePro, "0.24", decision.ActionHold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := arb.Judge(analysis(tc.pro), analysis(tc.con), tc.tier, tc.veto, "VETO: test")
			assert.Equal(t, tc.winner, v.Winner)
			assert.True(t, decimalx.MustParse(tc.final).Equal(v.FinalScore), "final=%s", v.FinalScore)
			assert.Equal(t, tc.action, v.Action)
		})
	}
}

func TestScenarioDBreakdown(t *testing.T) {
	v := NewArbitrator(DefaultMargin).Judge(
		Analysis{Confidence: 0.80, KeyPoints: []string{"a", "b", "c"}},
		Analysis{Confidence: 0.55},
		0.60, false, "",
	)
	assert.True(t, decimalx.MustParse("0.80").Equal(v.DebateScore))
	assert.True(t, decimalx.MustParse("0.18").Equal(v.Tier1Contribution))
	assert.True(t, decimalx.MustParse("0.56").Equal(v.DebateContribution))
	assert.Equal(t, market.Bullish, v.DebateBias)
	assert.Contains(t, v.Reasoning, "DECISION: BUY")
	assert.Contains(t, v.Reasoning, "Confidence: 74.0%")
	assert.NotContains(t, v.Reasoning, "3. c")
}

func TestVetoReasonCarried(t *testing.T) {
	v := NewArbitrator(DefaultMargin).Judge(Analysis{Confidence: 0.9}, Analysis{Confidence: 0.1}, 0.9, true, "VETO: Bearish trend on higher timeframe (strength: 0.85)")
	assert.True(t, v.VetoActive)
	assert.Equal(t, decision.ActionHold, v.Action)
	assert.Contains(t, v.Summary(), "Tier 1 Veto: VETO: Bearish")
	assert.Contains(t, v.Reasoning, "[TIER 1 VETO]")
}

func TestCustomMargin(t *testing.T) {
	side, _, _ := NewArbitrator(0.3).Winner(0.80, 0.55)
	assert.Equal(t, SideNeutral, side)
}
