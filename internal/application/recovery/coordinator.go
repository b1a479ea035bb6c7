package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-recovery-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// CoordinatorDeps lists the collaborators a Coordinator needs.
type CoordinatorDeps struct {
	Store      PasscodeStore
	Identities IdentityStore
	Now        func() time.Time // defaults to time.Now
}

// Coordinator gates the privileged action behind a previously verified
// passcode. Verification state lives in the record's used_at, so the second
// step re-validates it instead of trusting the first step's outcome.
type Coordinator struct {
	store      PasscodeStore
	identities IdentityStore
	now        func() time.Time
}

func NewCoordinator(d CoordinatorDeps) *Coordinator {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Coordinator{store: d.Store, identities: d.Identities, now: d.Now}
}

// CompleteRecovery replaces the account's password if tok names a passcode
// that was verified and is still inside its expiry window. A verified but
// expired token is not honored; that caps how long the verified state stays
// exploitable. On success all remaining passcodes for (address, purpose) are
// purged, used or not.
//
// Every gating failure surfaces as the single NotVerified reason; the precise
// cause is only logged.
func (c *Coordinator) CompleteRecovery(ctx context.Context, address, newSecret, tok string) error {
	p, err := c.store.FindByToken(ctx, tok)
	if err != nil {
		slog.Warn("recovery completion refused", "cause", "token not found")
		return domain.Reject(domain.ReasonNotVerified)
	}
	switch {
	case p.Address != address:
		slog.Warn("recovery completion refused", "cause", "address mismatch")
		return domain.Reject(domain.ReasonNotVerified)
	case p.Purpose != domain.PurposePasswordReset:
		slog.Warn("recovery completion refused", "cause", "purpose mismatch")
		return domain.Reject(domain.ReasonNotVerified)
	case !p.Used():
		slog.Warn("recovery completion refused", "cause", "passcode not verified")
		return domain.Reject(domain.ReasonNotVerified)
	case p.Expired(c.now()):
		slog.Warn("recovery completion refused", "cause", "verified state expired")
		return domain.Reject(domain.ReasonNotVerified)
	}

	account, err := c.identities.GetByAddress(ctx, address)
	if err != nil {
		return fmt.Errorf("resolve account: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newSecret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash new secret: %w", err)
	}
	if err := c.identities.UpdatePasswordHash(ctx, account.AccountID, string(hash)); err != nil {
		return fmt.Errorf("replace credential: %w", err)
	}

	// Purge everything outstanding for the pair so no second, still-valid
	// passcode survives the completed recovery.
	n, err := c.store.DeleteByAddressAndPurpose(ctx, address, p.Purpose)
	if err != nil {
		return fmt.Errorf("purge passcodes: %w", err)
	}
	slog.Info("recovery completed", "account_id", account.AccountID, "purged", n)
	return nil
}
