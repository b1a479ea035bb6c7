package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-recovery-api/internal/domain"
	"github.com/go-recovery-api/internal/pkg/otp"
)

// VerifierDeps lists the collaborators a Verifier needs.
type VerifierDeps struct {
	Store       PasscodeStore
	MaxAttempts int
	Now         func() time.Time // defaults to time.Now
}

// Verifier checks submitted codes against stored passcodes, enforcing expiry,
// the attempt budget, and single-use consumption.
type Verifier struct {
	store       PasscodeStore
	maxAttempts int
	now         func() time.Time
}

func NewVerifier(d VerifierDeps) *Verifier {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Verifier{store: d.Store, maxAttempts: d.MaxAttempts, now: d.Now}
}

// Verify runs the per-record state machine for one submitted code. On the
// first correct code it consumes the record (sets used_at) and returns it;
// every other outcome is a *domain.RecoveryError whose reason is for internal
// logging only and must not reach the caller verbatim.
//
// Wrong guesses increment the attempt counter atomically, so the effective
// ceiling is exactly MaxAttempts wrong codes before permanent lockout. Two
// racing correct guesses resolve to one success and one AlreadyUsed.
func (v *Verifier) Verify(ctx context.Context, address, code, purpose, tok string) (*domain.Passcode, error) {
	p, err := v.store.FindByToken(ctx, tok)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Reject(domain.ReasonInvalidToken)
		}
		return nil, fmt.Errorf("load passcode: %w", err)
	}

	// A single Mismatch reason regardless of which field differed.
	if p.Address != address || p.Purpose != purpose {
		return nil, domain.Reject(domain.ReasonMismatch)
	}
	if p.Used() {
		return nil, domain.Reject(domain.ReasonAlreadyUsed)
	}
	if p.Expired(v.now()) {
		return nil, domain.Reject(domain.ReasonExpired)
	}
	if p.Attempts >= v.maxAttempts {
		return nil, domain.Reject(domain.ReasonLockedOut)
	}

	if !otp.Match(p.CodeDigest, code) {
		if _, err := v.store.IncrementAttempts(ctx, tok); err != nil {
			return nil, fmt.Errorf("record failed attempt: %w", err)
		}
		return nil, domain.Reject(domain.ReasonWrongCode)
	}

	usedAt := v.now().UTC()
	if err := v.store.MarkUsed(ctx, tok, usedAt); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the race against a concurrent correct guess.
			return nil, domain.Reject(domain.ReasonAlreadyUsed)
		}
		return nil, fmt.Errorf("consume passcode: %w", err)
	}
	p.UsedAt = &usedAt
	return p, nil
}
