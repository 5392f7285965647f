package account

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sentinel/internal/pkg/decimalx"
)

type RiskMode string

const (
	ModeSafe       RiskMode = "safe"
	ModeBalanced   RiskMode = "balanced"
	ModeAggressive RiskMode = "aggressive"
	ModeSniper     RiskMode = "sniper"
)

// RiskSettings is the fixed tuple attached to each risk mode.
type RiskSettings struct {
	Mode                 RiskMode        `json:"mode"`
	RiskPerTrade         decimal.Decimal `json:"risk_per_trade"`
	MaxDailyRisk         decimal.Decimal `json:"max_daily_risk"`
	MinRRR               decimal.Decimal `json:"min_rrr"`
	TargetWinrate        decimal.Decimal `json:"target_winrate"`
	MaxConsecutiveLosses int             `json:"max_consecutive_losses"`
	// MinConfidence is zero for modes without a confidence floor.
	MinConfidence decimal.Decimal `json:"min_confidence"`
}

var riskTable = map[RiskMode]RiskSettings{
	ModeSafe: {
		Mode:                 ModeSafe,
		RiskPerTrade:         decimalx.MustParse("0.01"),
		MaxDailyRisk:         decimalx.MustParse("0.03"),
		MinRRR:               decimalx.MustParse("2.5"),
		TargetWinrate:        decimalx.MustParse("0.45"),
		MaxConsecutiveLosses: 5,
		MinConfidence:        decimal.Zero,
	},
	ModeBalanced: {
		Mode:                 ModeBalanced,
		RiskPerTrade:         decimalx.MustParse("0.02"),
		MaxDailyRisk:         decimalx.MustParse("0.04"),
		MinRRR:               decimalx.MustParse("2.0"),
		TargetWinrate:        decimalx.MustParse("0.40"),
		MaxConsecutiveLosses: 4,
		MinConfidence:        decimal.Zero,
	},
	ModeAggressive: {
		Mode:                 ModeAggressive,
		RiskPerTrade:         decimalx.MustParse("0.03"),
		MaxDailyRisk:         decimalx.MustParse("0.06"),
		MinRRR:               decimalx.MustParse("1.5"),
		TargetWinrate:        decimalx.MustParse("0.50"),
		MaxConsecutiveLosses: 3,
		MinConfidence:        decimal.Zero,
	},
	ModeSniper: {
		Mode:                 ModeSniper,
		RiskPerTrade:         decimalx.MustParse("0.015"),
		MaxDailyRisk:         decimalx.MustParse("0.03"),
		MinRRR:               decimalx.MustParse("3.0"),
		TargetWinrate:        decimalx.MustParse("0.35"),
		MaxConsecutiveLosses: 4,
		MinConfidence:        decimalx.MustParse("0.75"),
	},
}

func ParseRiskMode(s string) (RiskMode, error) {
	mode := RiskMode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := riskTable[mode]; !ok {
		return "", fmt.Errorf("unknown risk mode %q", s)
	}
	return mode, nil
}

// SettingsFor falls back to balanced for unknown modes.
func SettingsFor(mode RiskMode) RiskSettings {
	if s, ok := riskTable[mode]; ok {
		return s
	}
	return riskTable[ModeBalanced]
}

func Modes() []RiskMode {
	return []RiskMode{ModeSafe, ModeBalanced, ModeAggressive, ModeSniper}
}
