package decimalx

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFromFloatGuardsNonFinite(t *testing.T) {
	assert.True(t, FromFloat(math.NaN()).IsZero())
	assert.True(t, FromFloat(math.Inf(1)).IsZero())
	assert.Equal(t, "1.1", FromFloat(1.1).String())
}

func TestFloorToStep(t *testing.T) {
	tests := []struct {
		in, step, want string
	}{
		{"0.237", "0.01", "0.23"},
		{"0.29", "0.1", "0.2"},
		{"1.5", "0.5", "1.5"},
		{"0.009", "0.01", "0"},
		{"3.7", "0", "3.7"},
	}
	for _, tc := range tests {
		t.Run(tc.in+"/"+tc.step, func(t *testing.T) {
			got := FloorToStep(MustParse(tc.in), MustParse(tc.step))
			assert.True(t, got.Equal(MustParse(tc.want)), "got %s", got)
		})
	}
}

func TestClamp(t *testing.T) {
	lo, hi := MustParse("0.01"), decimal.NewFromInt(100)
	assert.True(t, Clamp(MustParse("0.001"), lo, hi).Equal(lo))
	assert.True(t, Clamp(MustParse("250"), lo, hi).Equal(hi))
	assert.True(t, Clamp(MustParse("2"), lo, hi).Equal(MustParse("2")))
}
