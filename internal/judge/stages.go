package judge

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sentinel/internal/account"
	"sentinel/internal/audit"
	"sentinel/internal/debate"
	"sentinel/internal/logger"
	"sentinel/internal/market"
	"sentinel/internal/pkg/decimalx"
	"sentinel/internal/sizing"
)

const pricePlaces = 5

// debate runs both agents concurrently. The first failure cancels the
// other side.
func (j *Judge) debate(ctx context.Context, in debate.Input) (debate.Analysis, debate.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return debate.Analysis{}, debate.Analysis{}, err
	}
	var pro, con debate.Analysis
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		pro, err = j.deps.Pro.Analyze(egCtx, in)
		return err
	})
	eg.Go(func() error {
		var err error
		con, err = j.deps.Con.Analyze(egCtx, in)
		return err
	})
	err := eg.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return pro, con, err
}

type levels struct {
	stop   decimal.Decimal
	target decimal.Decimal
}

type sizedTrade struct {
	lot    decimal.Decimal
	stop   decimal.Decimal
	target decimal.Decimal
}

// protectiveLevels places the stop beyond the bar extreme and the target
// at a fixed distance from price.
func (j *Judge) protectiveLevels(snap market.Snapshot, dir market.Direction) levels {
	price := decimalx.FromFloat(snap.Price)
	one := decimalx.One
	switch dir {
	case market.Bearish:
		high := decimalx.FromFloat(snap.High)
		if !high.IsPositive() {
			high = price
		}
		return levels{
			stop:   high.Mul(one.Add(j.params.StopLossPct)).Truncate(pricePlaces),
			target: price.Mul(one.Sub(j.params.TakeProfitPct)).Truncate(pricePlaces),
		}
	default:
		low := decimalx.FromFloat(snap.Low)
		if !low.IsPositive() {
			low = price
		}
		return levels{
			stop:   low.Mul(one.Sub(j.params.StopLossPct)).Truncate(pricePlaces),
			target: price.Mul(one.Add(j.params.TakeProfitPct)).Truncate(pricePlaces),
		}
	}
}

// validateLevels requires both levels on the correct side of price and at
// least the minimum distance away.
func (j *Judge) validateLevels(price decimal.Decimal, dir market.Direction, lv levels) error {
	minDist := j.params.PipSize.Mul(decimal.NewFromInt(int64(j.params.MinStopPips)))
	switch dir {
	case market.Bullish:
		if !lv.stop.LessThan(price) || !lv.target.GreaterThan(price) {
			return fmt.Errorf("buy levels out of order: sl=%s price=%s tp=%s", lv.stop, price, lv.target)
		}
	case market.Bearish:
		if !lv.stop.GreaterThan(price) || !lv.target.LessThan(price) {
			return fmt.Errorf("sell levels out of order: sl=%s price=%s tp=%s", lv.stop, price, lv.target)
		}
	default:
		return fmt.Errorf("no direction")
	}
	if price.Sub(lv.stop).Abs().LessThan(minDist) {
		return fmt.Errorf("stop loss closer than %d pips", j.params.MinStopPips)
	}
	if price.Sub(lv.target).Abs().LessThan(minDist) {
		return fmt.Errorf("take profit closer than %d pips", j.params.MinStopPips)
	}
	return nil
}

// profile resolves the account used for sizing. A directory miss or
// failure falls back to a standard account funded with the snapshot
// balance.
func (j *Judge) profile(ctx context.Context, snap market.Snapshot) (account.Profile, bool) {
	balance := decimalx.FromFloat(snap.Balance)
	if j.deps.Accounts == nil {
		return account.DefaultProfile(balance), false
	}
	id := snap.AccountID
	if id == "" {
		id = j.params.DefaultAccount
	}
	p, ok, err := j.deps.Accounts.Get(ctx, id)
	if err != nil {
		logger.Warnf("account lookup %s failed, using defaults: %v", id, err)
		return account.DefaultProfile(balance), false
	}
	if !ok {
		return account.DefaultProfile(balance), false
	}
	if !p.Balance.IsPositive() {
		p.Balance = balance
	}
	return p, true
}

// size returns the trade or a non-empty hold reason.
func (j *Judge) size(ctx context.Context, ev *evaluation, snap market.Snapshot, v debate.Verdict) (sizedTrade, string) {
	dir := v.Action.Direction()
	price := decimalx.FromFloat(snap.Price)
	lv := j.protectiveLevels(snap, dir)
	if err := j.validateLevels(price, dir, lv); err != nil {
		return sizedTrade{}, "Invalid SL/TP: " + err.Error()
	}

	profile, known := j.profile(ctx, snap)
	if known {
		if ok, msg := profile.CanTrade(j.now()); !ok {
			return sizedTrade{}, "Account check failed: " + msg
		}
	}
	settings := account.SettingsFor(j.params.RiskMode)
	if settings.MinConfidence.IsPositive() && v.FinalScore.LessThan(settings.MinConfidence) {
		return sizedTrade{}, fmt.Sprintf("Score %s | %s mode requires confidence >= %s",
			v.FinalScore.StringFixed(2), settings.Mode, settings.MinConfidence.StringFixed(2))
	}

	res := sizing.Size(sizing.Request{
		Symbol:  snap.Symbol,
		Balance: profile.Balance,
		Entry:   price,
		Stop:    lv.stop,
		Profile: profile,
		Mode:    settings.Mode,
	})
	ev.rec.Execution = &audit.Execution{
		Lot:        res.Lot,
		StopLoss:   lv.stop,
		TakeProfit: lv.target,
		RiskAmount: res.RiskAmount,
		RRR:        decimalx.ToFloat(sizing.RiskReward(price, lv.stop, lv.target)),
		RiskMode:   string(settings.Mode),
	}
	if !res.Lot.IsPositive() {
		reason := res.Reason
		if reason == "" {
			reason = "zero lot"
		}
		return sizedTrade{}, "Risk abort: " + reason
	}
	return sizedTrade{lot: res.Lot, stop: lv.stop, target: lv.target}, ""
}
