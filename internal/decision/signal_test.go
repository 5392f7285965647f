package decision

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/market"
)

func TestActionClassification(t *testing.T) {
	assert.True(t, ActionStrongBuy.IsBuy())
	assert.True(t, ActionStrongSell.IsEntry())
	assert.False(t, ActionHold.IsEntry())
	assert.Equal(t, market.Bearish, ActionSell.Direction())
	assert.Equal(t, market.Neutral, ActionHold.Direction())
}

func TestHoldIsZeroLot(t *testing.T) {
	sig := Hold("EURUSD", 1.7, "cooldown")
	assert.Equal(t, ActionHold, sig.Action)
	assert.True(t, sig.LotSize.IsZero())
	assert.Equal(t, 1.0, sig.Confidence)

	raw, err := json.Marshal(sig)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"action":"HOLD"`)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(math.NaN()))
	assert.Equal(t, 0.0, ClampConfidence(-0.2))
	assert.Equal(t, 0.42, ClampConfidence(0.42))
}
