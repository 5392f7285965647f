package account

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sentinel/internal/pkg/decimalx"
)

type seedAccount struct {
	AccountID   string  `yaml:"account_id"`
	AccountType string  `yaml:"account_type"`
	Balance     float64 `yaml:"balance"`
	Equity      float64 `yaml:"equity"`
	MarginFree  float64 `yaml:"margin_free"`
	Leverage    int     `yaml:"leverage"`
	Currency    string  `yaml:"currency"`
	MinLot      float64 `yaml:"min_lot"`
	LotStep     float64 `yaml:"lot_step"`
	MaxLot      float64 `yaml:"max_lot"`
}

type seedFile struct {
	Accounts []seedAccount `yaml:"accounts"`
}

// ParseSeed decodes a YAML account list. Unknown keys are rejected.
func ParseSeed(raw []byte) ([]Profile, error) {
	var f seedFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse account seed: %w", err)
	}
	out := make([]Profile, 0, len(f.Accounts))
	for i, a := range f.Accounts {
		if a.AccountID == "" {
			return nil, fmt.Errorf("account seed #%d missing account_id", i+1)
		}
		out = append(out, Profile{
			AccountID:   a.AccountID,
			AccountType: a.AccountType,
			Balance:     decimalx.FromFloat(a.Balance),
			Equity:      decimalx.FromFloat(a.Equity),
			MarginFree:  decimalx.FromFloat(a.MarginFree),
			Leverage:    a.Leverage,
			Currency:    a.Currency,
			MinLot:      decimalx.FromFloat(a.MinLot),
			LotStep:     decimalx.FromFloat(a.LotStep),
			MaxLot:      decimalx.FromFloat(a.MaxLot),
		}.Normalize())
	}
	return out, nil
}

// Seed loads a YAML file into the manager. Existing entries with the same
// id are replaced.
func (m *Manager) Seed(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read account seed: %w", err)
	}
	list, err := ParseSeed(raw)
	if err != nil {
		return 0, err
	}
	for _, p := range list {
		if _, err := m.Update(ctx, p); err != nil {
			return 0, err
		}
	}
	return len(list), nil
}
