package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-recovery-api/internal/domain"
)

// AccountStore is the in-memory identity store.
type AccountStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account // keyed by account_id
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]*domain.Account)}
}

func (s *AccountStore) Put(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.AccountID] = &cp
	return nil
}

func (s *AccountStore) GetByAddress(_ context.Context, address string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == address {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
}

func (s *AccountStore) UpdatePasswordHash(_ context.Context, accountID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	a.PasswordHash = passwordHash
	return nil
}
