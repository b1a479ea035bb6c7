// Package memory holds mutex-guarded in-memory implementations of the
// recovery stores. They mirror the DynamoDB contracts, including the
// conditional-write semantics, and back the stateful tests and local runs
// without AWS.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-recovery-api/internal/domain"
)

// PasscodeStore keeps passcode records in a map keyed by token.
type PasscodeStore struct {
	mu      sync.Mutex
	records map[string]*domain.Passcode
}

func NewPasscodeStore() *PasscodeStore {
	return &PasscodeStore{records: make(map[string]*domain.Passcode)}
}

func (s *PasscodeStore) Save(_ context.Context, p *domain.Passcode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.records[p.Token] = &cp
	return nil
}

func (s *PasscodeStore) FindByToken(_ context.Context, token string) (*domain.Passcode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[token]
	if !ok {
		return nil, fmt.Errorf("passcode not found: %w", domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *PasscodeStore) FindUnusedByAddressAndPurpose(_ context.Context, address, purpose string) ([]domain.Passcode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Passcode
	for _, p := range s.records {
		if p.Address == address && p.Purpose == purpose && p.UsedAt == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *PasscodeStore) IncrementAttempts(_ context.Context, token string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[token]
	if !ok {
		return 0, fmt.Errorf("passcode not found: %w", domain.ErrNotFound)
	}
	p.Attempts++
	return p.Attempts, nil
}

func (s *PasscodeStore) MarkUsed(_ context.Context, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[token]
	if !ok {
		return fmt.Errorf("passcode not found: %w", domain.ErrNotFound)
	}
	if p.UsedAt != nil {
		return fmt.Errorf("passcode already consumed: %w", domain.ErrConflict)
	}
	t := at
	p.UsedAt = &t
	return nil
}

func (s *PasscodeStore) DeleteByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, token)
	return nil
}

func (s *PasscodeStore) DeleteByAddressAndPurpose(_ context.Context, address, purpose string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for tok, p := range s.records {
		if p.Address == address && p.Purpose == purpose {
			delete(s.records, tok)
			n++
		}
	}
	return n, nil
}

func (s *PasscodeStore) DeleteExpiredBefore(_ context.Context, t time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for tok, p := range s.records {
		if t.Unix() > p.ExpiresAt {
			delete(s.records, tok)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored records. Test helper.
func (s *PasscodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
