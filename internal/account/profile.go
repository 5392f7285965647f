package account

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sentinel/internal/pkg/decimalx"
)

const (
	DefaultAccountID = "default"
	// MaxDataAge is how old a profile may be before it counts as stale.
	MaxDataAge = 300 * time.Second
)

var (
	defaultMinLot  = decimalx.MustParse("0.01")
	defaultLotStep = decimalx.MustParse("0.01")
	defaultMaxLot  = decimal.NewFromInt(100)
	microLot       = decimalx.MustParse("0.1")
	minTradeable   = decimal.NewFromInt(100)
	minMarginRatio = decimalx.MustParse("0.5")
)

// Profile is the broker account view used for sizing. It is treated as
// read-only once handed to the sizer.
type Profile struct {
	AccountID   string          `json:"account_id"`
	AccountType string          `json:"account_type"`
	Balance     decimal.Decimal `json:"balance"`
	Equity      decimal.Decimal `json:"equity"`
	MarginFree  decimal.Decimal `json:"margin_free"`
	Leverage    int             `json:"leverage"`
	Currency    string          `json:"currency"`
	MinLot      decimal.Decimal `json:"min_lot"`
	LotStep     decimal.Decimal `json:"lot_step"`
	MaxLot      decimal.Decimal `json:"max_lot"`
	IsMicro     bool            `json:"is_micro"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DefaultProfile is the standard-lot account assumed when the directory
// has no entry.
func DefaultProfile(balance decimal.Decimal) Profile {
	return Profile{
		AccountID:   DefaultAccountID,
		AccountType: "normal",
		Balance:     balance,
		Equity:      balance,
		MarginFree:  balance,
		Leverage:    100,
		Currency:    "USD",
		MinLot:      defaultMinLot,
		LotStep:     defaultLotStep,
		MaxLot:      defaultMaxLot,
	}
}

// DetectMicro treats a 0.1 minimum lot or a micro/cent account type as
// micro.
func DetectMicro(minLot decimal.Decimal, accountType string) bool {
	if minLot.GreaterThanOrEqual(microLot) {
		return true
	}
	t := strings.ToLower(accountType)
	return strings.Contains(t, "micro") || strings.Contains(t, "cent")
}

// Normalize fills lot defaults and enforces the micro 0.1 floor on
// minLot and lotStep.
func (p Profile) Normalize() Profile {
	if strings.TrimSpace(p.AccountID) == "" {
		p.AccountID = DefaultAccountID
	}
	if p.AccountType == "" {
		p.AccountType = "normal"
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.Leverage <= 0 {
		p.Leverage = 100
	}
	if !p.MinLot.IsPositive() {
		p.MinLot = defaultMinLot
	}
	if !p.LotStep.IsPositive() {
		p.LotStep = defaultLotStep
	}
	if !p.MaxLot.IsPositive() {
		p.MaxLot = defaultMaxLot
	}
	p.IsMicro = p.IsMicro || DetectMicro(p.MinLot, p.AccountType)
	if p.IsMicro {
		p.MinLot = decimal.Max(p.MinLot, microLot)
		p.LotStep = decimal.Max(p.LotStep, microLot)
	}
	if p.MaxLot.LessThan(p.MinLot) {
		p.MaxLot = p.MinLot
	}
	return p
}

func (p Profile) Age(now time.Time) time.Duration {
	if p.UpdatedAt.IsZero() {
		return 0
	}
	return now.Sub(p.UpdatedAt)
}

func (p Profile) Stale(now time.Time) bool {
	return p.Age(now) > MaxDataAge
}

// CanTrade checks freshness, a minimum balance of 100 and free margin of
// at least half the balance.
func (p Profile) CanTrade(now time.Time) (bool, string) {
	if p.Stale(now) {
		return false, fmt.Sprintf("Account data stale (%.0fs old)", p.Age(now).Seconds())
	}
	if p.Balance.LessThan(minTradeable) {
		return false, fmt.Sprintf("Insufficient balance: $%s", p.Balance.StringFixed(2))
	}
	if p.MarginFree.LessThan(p.Balance.Mul(minMarginRatio)) {
		return false, fmt.Sprintf("Low free margin: $%s", p.MarginFree.StringFixed(2))
	}
	return true, "Account OK"
}
