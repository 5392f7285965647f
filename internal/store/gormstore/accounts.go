package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"sentinel/internal/account"
)

var _ account.Repository = (*GormStore)(nil)

func (s *GormStore) SaveAccount(ctx context.Context, p account.Profile) error {
	m := accountModel{
		AccountID:     p.AccountID,
		AccountType:   p.AccountType,
		Balance:       p.Balance.String(),
		Equity:        p.Equity.String(),
		MarginFree:    p.MarginFree.String(),
		Leverage:      p.Leverage,
		Currency:      p.Currency,
		MinLot:        p.MinLot.String(),
		LotStep:       p.LotStep.String(),
		MaxLot:        p.MaxLot.String(),
		IsMicro:       p.IsMicro,
		UpdatedAtUnix: p.UpdatedAt.UnixMilli(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

func (s *GormStore) LoadAccounts(ctx context.Context) ([]account.Profile, error) {
	var rows []accountModel
	if err := s.db.WithContext(ctx).Order("account_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]account.Profile, 0, len(rows))
	for _, r := range rows {
		out = append(out, account.Profile{
			AccountID:   r.AccountID,
			AccountType: r.AccountType,
			Balance:     parseDecimal(r.Balance),
			Equity:      parseDecimal(r.Equity),
			MarginFree:  parseDecimal(r.MarginFree),
			Leverage:    r.Leverage,
			Currency:    r.Currency,
			MinLot:      parseDecimal(r.MinLot),
			LotStep:     parseDecimal(r.LotStep),
			MaxLot:      parseDecimal(r.MaxLot),
			IsMicro:     r.IsMicro,
			UpdatedAt:   time.UnixMilli(r.UpdatedAtUnix),
		})
	}
	return out, nil
}

func (s *GormStore) DeleteAccount(ctx context.Context, accountID string) error {
	return s.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&accountModel{}).Error
}
