// Package decimalx holds the float/decimal bridges used on money paths.
package decimalx

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	One     = decimal.NewFromInt(1)
	Hundred = decimal.NewFromInt(100)
)

// FromFloat maps NaN and ±Inf to zero instead of panicking.
func FromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func ToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Clamp bounds d into [lo, hi].
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// FloorToStep rounds d down to a whole multiple of step. A non-positive
// step returns d unchanged.
func FloorToStep(d, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return d
	}
	return d.Div(step).Floor().Mul(step)
}

// MustParse is for package-level constants only.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
