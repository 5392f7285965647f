package sizing

import (
	"strings"

	"github.com/shopspring/decimal"

	"sentinel/internal/pkg/symbol"
)

type pipEntry struct {
	match []string
	value decimal.Decimal
}

// Account-currency value of a 1.0 price move on one lot, matched by symbol
// substring in order.
var pipTable = []pipEntry{
	{match: []string{"JPY"}, value: decimal.NewFromInt(1000)},
	{match: []string{"XAU", "GOLD"}, value: decimal.NewFromInt(100)},
	{match: []string{"XAG", "SILVER"}, value: decimal.NewFromInt(50)},
	{match: []string{"BTC"}, value: decimal.NewFromInt(1)},
}

var defaultPipValue = decimal.NewFromInt(100000)

func PipValue(sym string) decimal.Decimal {
	s := symbol.Normalize(sym)
	for _, e := range pipTable {
		for _, m := range e.match {
			if strings.Contains(s, m) {
				return e.value
			}
		}
	}
	return defaultPipValue
}
