// Package symbol canonicalises broker instrument names so "eurusd.m",
// "EUR/USD" and "EURUSDpro" all refer to EURUSD.
package symbol

import "strings"

// ISO codes recognised as pair legs, metals included.
var currencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "CHF": {}, "AUD": {}, "NZD": {}, "CAD": {},
	"SGD": {}, "HKD": {}, "NOK": {}, "SEK": {}, "DKK": {}, "PLN": {}, "MXN": {}, "ZAR": {},
	"TRY": {}, "CNH": {}, "XAU": {}, "XAG": {}, "XPT": {}, "XPD": {},
}

var separators = strings.NewReplacer("/", "", "-", "", "_", "", " ", "")

type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) String() string { return s.Base + s.Quote }

// Parse recognises a currency pair, ignoring any broker suffix.
func Parse(raw string) (Symbol, bool) {
	s := clean(raw)
	if len(s) < 6 {
		return Symbol{}, false
	}
	base, quote := s[:3], s[3:6]
	if _, ok := currencies[base]; !ok {
		return Symbol{}, false
	}
	if _, ok := currencies[quote]; !ok {
		return Symbol{}, false
	}
	return Symbol{Base: base, Quote: quote}, true
}

// Normalize returns the canonical pair name, or the cleaned upper-case input
// for instruments that are not currency pairs (indices, crypto).
func Normalize(raw string) string {
	if sym, ok := Parse(raw); ok {
		return sym.String()
	}
	return clean(raw)
}

// NormalizeList normalises and de-duplicates, dropping blanks.
func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := Normalize(s)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

func clean(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.IndexAny(s, ".#"); i > 0 {
		s = s[:i]
	}
	return separators.Replace(s)
}
