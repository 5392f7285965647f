package veto

import (
	"fmt"
	"strings"

	"sentinel/internal/market"
)

func formatLevels(levels []float64) string {
	parts := make([]string, 0, len(levels))
	for _, l := range market.Tail(levels, 3) {
		parts = append(parts, fmt.Sprintf("%.5f", l))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Context renders the Tier-1 block included in the debate prompts.
func (r Result) Context() string {
	var b strings.Builder
	b.WriteString("TIER 1 MATHEMATICAL ANALYSIS:\n")
	fmt.Fprintf(&b, "- Trend Direction: %s\n", strings.ToUpper(string(r.Direction)))
	fmt.Fprintf(&b, "- Trend Strength: %.2f/1.0\n", r.Strength)
	fmt.Fprintf(&b, "- Trend Class: %s\n", r.Trend())
	fmt.Fprintf(&b, "- MA Alignment: %s\n", r.Alignment)
	fmt.Fprintf(&b, "- Structure Valid: %t\n", r.StructureValid)
	fmt.Fprintf(&b, "- Support Levels: %s\n", formatLevels(r.Support))
	fmt.Fprintf(&b, "- Resistance Levels: %s\n", formatLevels(r.Resistance))
	if r.Insufficient {
		b.WriteString("- Data: insufficient history, no trend read\n")
		return b.String()
	}
	if r.VetoReason != "" {
		fmt.Fprintf(&b, "\nVETO ACTIVE: %s\n", r.VetoReason)
	}
	return b.String()
}

// NearestResistance returns the lowest resistance level above price.
func (r Result) NearestResistance(price float64) (float64, bool) {
	best, found := 0.0, false
	for _, lvl := range r.Resistance {
		if lvl >= price && (!found || lvl < best) {
			best, found = lvl, true
		}
	}
	return best, found
}
