package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sentinel/internal/logger"
)

// Directory resolves account profiles. A missing account is (zero, false, nil).
type Directory interface {
	Get(ctx context.Context, accountID string) (Profile, bool, error)
}

// Repository persists profiles across restarts.
type Repository interface {
	SaveAccount(ctx context.Context, p Profile) error
	LoadAccounts(ctx context.Context) ([]Profile, error)
	DeleteAccount(ctx context.Context, accountID string) error
}

// Manager keeps the latest profile per account in memory and writes
// through to an optional repository.
type Manager struct {
	mu       sync.RWMutex
	accounts map[string]Profile
	repo     Repository
	now      func() time.Time
}

func NewManager(repo Repository, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{accounts: make(map[string]Profile), repo: repo, now: now}
}

// Load replaces the in-memory set with the repository contents.
func (m *Manager) Load(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}
	list, err := m.repo.LoadAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[string]Profile, len(list))
	for _, p := range list {
		m.accounts[p.AccountID] = p.Normalize()
	}
	logger.Infof("account manager loaded %d accounts", len(list))
	return nil
}

// Update normalizes, stamps and stores a profile.
func (m *Manager) Update(ctx context.Context, p Profile) (Profile, error) {
	p = p.Normalize()
	p.UpdatedAt = m.now()
	if m.repo != nil {
		if err := m.repo.SaveAccount(ctx, p); err != nil {
			return Profile{}, fmt.Errorf("save account %s: %w", p.AccountID, err)
		}
	}
	m.mu.Lock()
	m.accounts[p.AccountID] = p
	m.mu.Unlock()
	logger.Infof("account updated: %s type=%s balance=%s min_lot=%s micro=%t",
		p.AccountID, p.AccountType, p.Balance.StringFixed(2), p.MinLot, p.IsMicro)
	return p, nil
}

func (m *Manager) Get(_ context.Context, accountID string) (Profile, bool, error) {
	if accountID == "" {
		accountID = DefaultAccountID
	}
	m.mu.RLock()
	p, ok := m.accounts[accountID]
	m.mu.RUnlock()
	if ok && p.Stale(m.now()) {
		logger.Warnf("account %s data is stale (%.0fs old)", accountID, p.Age(m.now()).Seconds())
	}
	return p, ok, nil
}

func (m *Manager) Remove(ctx context.Context, accountID string) error {
	if m.repo != nil {
		if err := m.repo.DeleteAccount(ctx, accountID); err != nil {
			return fmt.Errorf("delete account %s: %w", accountID, err)
		}
	}
	m.mu.Lock()
	delete(m.accounts, accountID)
	m.mu.Unlock()
	return nil
}

// List returns profiles sorted by id.
func (m *Manager) List() []Profile {
	m.mu.RLock()
	out := make([]Profile, 0, len(m.accounts))
	for _, p := range m.accounts {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

func (m *Manager) CanTrade(ctx context.Context, accountID string) (bool, string) {
	p, ok, _ := m.Get(ctx, accountID)
	if !ok {
		return false, "No account information"
	}
	return p.CanTrade(m.now())
}
