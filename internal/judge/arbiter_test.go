package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sentinel/internal/debate"
	"sentinel/internal/gateway/provider"
	"sentinel/internal/market"
)

func TestParseVerdict(t *testing.T) {
	schema, err := compileVerdictSchema()
	require.NoError(t, err)

	cases := []struct {
		name     string
		raw      string
		score    float64
		reason   string
		fallback bool
	}{
		{"pipe", "0.85|Valid trend with safe R:R.", 0.85, "Valid trend with safe R:R.", false},
		{"pipe with spaces", "  0.20 | Rejected due to overhead resistance \n", 0.20, "Rejected due to overhead resistance", false},
		{"reason keeps later pipes", "0.7|a|b", 0.7, "a|b", false},
		{"json", `{"score": 0.9, "reason": "clean breakout"}`, 0.9, "clean breakout", false},
		{"fenced json", "```json\n{\"score\":0.3,\"reason\":\"weak\"}\n```", 0.3, "weak", false},
		{"json out of range", `{"score": 1.4, "reason": "x"}`, 0.5, `{"score": 1.4, "reason": "x"}`, true},
		{"json missing reason", `{"score": 0.4}`, 0.5, `{"score": 0.4}`, true},
		{"score out of range", "7|too confident", 0.5, "7|too confident", true},
		{"embedded json", `Verdict: {"score":0.6,"reason":"ok"} done`, 0.6, "ok", false},
		{"prose", "I think this looks fine", 0.5, "I think this looks fine", true},
		{"empty", "", 0.5, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := ParseVerdict(tc.raw, schema)
			assert.InDelta(t, tc.score, v.Score, 1e-9)
			assert.Equal(t, tc.reason, v.Reason)
			assert.Equal(t, tc.fallback, v.Fallback)
		})
	}
}

func TestParseVerdictTruncatesFallback(t *testing.T) {
	raw := strings.Repeat("word ", 30)
	v := ParseVerdict(raw, nil)
	assert.True(t, v.Fallback)
	assert.Equal(t, 0.5, v.Score)
	assert.Equal(t, 53, len([]rune(v.Reason)))
	assert.True(t, strings.HasSuffix(v.Reason, "..."))
}

func TestLLMArbiter(t *testing.T) {
	in := ArbiterInput{
		Snapshot: market.Snapshot{Symbol: "EURUSD", Timeframe: "H1", Price: 1.1},
		Tier:     bullishTier(),
		Pro:      debate.Analysis{KeyPoints: []string{"Bullish price action"}, Confidence: 0.8},
		Con:      debate.Analysis{RawText: "Spread is wide"},
	}

	t.Run("parses reply", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.On("Generate", mock.Anything, mock.MatchedBy(func(p provider.Prompt) bool {
			return p.Purpose == "arbitration" &&
				strings.Contains(p.User, "Bullish price action") &&
				strings.Contains(p.User, "Spread is wide") &&
				strings.Contains(p.User, "TIER 1 MATHEMATICAL ANALYSIS")
		})).Return("0.82|Trend intact", nil).Once()

		arb, err := NewLLMArbiter(gen)
		require.NoError(t, err)
		v, err := arb.Arbitrate(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, Verdict{Score: 0.82, Reason: "Trend intact"}, v)
		gen.AssertExpectations(t)
	})
	t.Run("transport error is returned", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("timeout")).Once()
		arb, err := NewLLMArbiter(gen)
		require.NoError(t, err)
		_, err = arb.Arbitrate(context.Background(), in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "arbitration: timeout")
	})
	t.Run("requires generator", func(t *testing.T) {
		_, err := NewLLMArbiter(nil)
		assert.Error(t, err)
	})
}
