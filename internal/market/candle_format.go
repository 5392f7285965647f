package market

import (
	"fmt"
	"strings"
	"time"
)

// TimeString renders the bar open as "01-02 15:04Z", "-" when unset.
func (c Candle) TimeString() string {
	if c.Time <= 0 {
		return "-"
	}
	return time.Unix(c.Time, 0).UTC().Format("01-02 15:04") + "Z"
}

// Summarize describes a candle window in one line for prompts:
// last close, change over the window and the high/low range.
func Summarize(candles []Candle, timeframe string) string {
	if len(candles) == 0 {
		return ""
	}
	first, last := candles[0], candles[len(candles)-1]
	base := first.Close
	if base == 0 {
		base = first.Open
	}
	low, high := first.Low, first.High
	for _, bar := range candles[1:] {
		if bar.Low > 0 && (low <= 0 || bar.Low < low) {
			low = bar.Low
		}
		if bar.High > high {
			high = bar.High
		}
	}
	tf := strings.TrimSpace(timeframe)
	if tf == "" {
		tf = "bar"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "close %.5f", last.Close)
	if base != 0 {
		fmt.Fprintf(&b, " (%+.2f%% over %d %s)", (last.Close-base)/base*100, len(candles), tf)
	}
	if low > 0 && high > 0 {
		fmt.Fprintf(&b, ", range %.5f-%.5f", low, high)
	}
	if from, to := first.TimeString(), last.TimeString(); from != "-" && to != "-" {
		fmt.Fprintf(&b, ", %s to %s", from, to)
	}
	return b.String()
}
