// Package sizing converts a stop distance into a lot size bounded by the
// account limits and the risk mode. All arithmetic is decimal; every
// rounding step rounds down.
package sizing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sentinel/internal/account"
	"sentinel/internal/logger"
	"sentinel/internal/pkg/decimalx"
)

const lotPlaces = 2

var microStep = decimalx.MustParse("0.1")

type Request struct {
	Symbol  string
	Balance decimal.Decimal
	Entry   decimal.Decimal
	Stop    decimal.Decimal
	Profile account.Profile
	Mode    account.RiskMode
}

type Result struct {
	Lot        decimal.Decimal `json:"lot"`
	RawLot     decimal.Decimal `json:"raw_lot"`
	RiskAmount decimal.Decimal `json:"risk_amount"`
	PipValue   decimal.Decimal `json:"pip_value"`
	// Aborted marks the deliberate zero lot when even minLot breaches the
	// daily risk cap.
	Aborted bool   `json:"aborted"`
	Reason  string `json:"reason,omitempty"`
}

// RawLot is riskAmount / (priceDiff × pipValue), unrounded.
func RawLot(riskAmount, priceDiff, pipValue decimal.Decimal) decimal.Decimal {
	den := priceDiff.Mul(pipValue)
	if !den.IsPositive() {
		return decimal.Zero
	}
	return riskAmount.Div(den)
}

// Size never fails: unexpected conditions return the profile minimum lot.
func Size(req Request) (res Result) {
	profile := req.Profile.Normalize()
	minLot := profile.MinLot
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("position sizing panic for %s: %v", req.Symbol, r)
			res = Result{Lot: minLot.Truncate(lotPlaces), Reason: fmt.Sprintf("sizing error: %v", r)}
		}
	}()

	if !req.Balance.IsPositive() || !req.Entry.IsPositive() || req.Stop.IsNegative() {
		return Result{Lot: minLot, Reason: "invalid sizing input"}
	}

	settings := account.SettingsFor(req.Mode)
	pip := PipValue(req.Symbol)
	risk := req.Balance.Mul(settings.RiskPerTrade)
	diff := req.Entry.Sub(req.Stop).Abs()
	res = Result{RiskAmount: risk, PipValue: pip}
	if diff.IsZero() {
		res.Lot = minLot
		res.Reason = "zero stop distance"
		return res
	}

	raw := RawLot(risk, diff, pip)
	res.RawLot = raw

	step := profile.LotStep
	if profile.IsMicro {
		step = microStep
	}
	lot := decimalx.FloorToStep(raw, step)

	if lot.LessThan(minLot) {
		implied := minLot.Mul(diff).Mul(pip).Div(req.Balance)
		if implied.GreaterThan(settings.MaxDailyRisk) {
			res.Lot = decimal.Zero
			res.Aborted = true
			res.Reason = fmt.Sprintf("min lot %s risks %s%% of balance, above daily cap %s%%",
				minLot, implied.Mul(decimalx.Hundred).StringFixed(2), settings.MaxDailyRisk.Mul(decimalx.Hundred).StringFixed(2))
			logger.Warnf("position sizing aborted for %s: %s", req.Symbol, res.Reason)
			return res
		}
		lot = minLot
	}

	res.Lot = decimalx.Clamp(lot, minLot, profile.MaxLot).Truncate(lotPlaces)
	logger.Debugf("sizing %s: risk=%s diff=%s pip=%s raw=%s lot=%s mode=%s",
		req.Symbol, risk.StringFixed(2), diff, pip, raw.StringFixed(4), res.Lot, settings.Mode)
	return res
}

// RiskReward is reward distance over risk distance, zero when the stop
// distance is zero.
func RiskReward(entry, stop, target decimal.Decimal) decimal.Decimal {
	risk := entry.Sub(stop).Abs()
	if risk.IsZero() {
		return decimal.Zero
	}
	return target.Sub(entry).Abs().Div(risk)
}
