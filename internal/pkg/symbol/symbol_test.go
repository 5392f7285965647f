package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"EURUSD":    "EURUSD",
		" eurusd ":  "EURUSD",
		"EUR/USD":   "EURUSD",
		"eurusd.m":  "EURUSD",
		"EURUSDpro": "EURUSD",
		"GBPJPY#":   "GBPJPY",
		"xauusd_i":  "XAUUSD",
		"US30.cash": "US30",
		"btc-usd":   "BTCUSD",
		"":          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestParse(t *testing.T) {
	sym, ok := Parse("usdjpy.ecn")
	assert.True(t, ok)
	assert.Equal(t, Symbol{Base: "USD", Quote: "JPY"}, sym)

	_, ok = Parse("US30")
	assert.False(t, ok)
	_, ok = Parse("BTCUSD")
	assert.False(t, ok, "BTC is not a listed currency")
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{"eurusd", "EUR/USD", " ", "xauusd.m"})
	assert.Equal(t, []string{"EURUSD", "XAUUSD"}, got)
	assert.Nil(t, NormalizeList(nil))
}
