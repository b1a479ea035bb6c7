package recovery

import (
	"context"
	"time"

	"github.com/go-recovery-api/internal/domain"
)

// PasscodeStore is the persistence contract for passcode records.
//
// FindByToken returns domain.ErrNotFound (wrapped) when no record exists.
// IncrementAttempts and MarkUsed are the per-record atomic primitives: two
// concurrent increments must both count, and of two concurrent MarkUsed calls
// exactly one succeeds while the loser gets domain.ErrConflict.
type PasscodeStore interface {
	FindByToken(ctx context.Context, token string) (*domain.Passcode, error)
	FindUnusedByAddressAndPurpose(ctx context.Context, address, purpose string) ([]domain.Passcode, error)
	Save(ctx context.Context, p *domain.Passcode) error
	IncrementAttempts(ctx context.Context, token string) (int, error)
	MarkUsed(ctx context.Context, token string, at time.Time) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteByAddressAndPurpose(ctx context.Context, address, purpose string) (int, error)
	DeleteExpiredBefore(ctx context.Context, t time.Time) (int, error)
}

// IdentityStore is the external account store: resolve an address to an
// account, and replace its credential after a completed recovery.
type IdentityStore interface {
	GetByAddress(ctx context.Context, address string) (*domain.Account, error)
	UpdatePasswordHash(ctx context.Context, accountID, passwordHash string) error
}

// Notifier delivers a plaintext passcode out-of-band. Delivery is best-effort
// and asynchronous from the issuer's point of view.
type Notifier interface {
	Deliver(ctx context.Context, address, code, purpose string) error
}

// IssueLimiter throttles issuance per address. Allow returns an error wrapping
// domain.ErrRateLimited when the address is over its window budget.
type IssueLimiter interface {
	Allow(ctx context.Context, address string) error
}

// Options are the tunable knobs of the recovery core, wired from config.
type Options struct {
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int
}
