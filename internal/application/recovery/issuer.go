package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-recovery-api/internal/domain"
	"github.com/go-recovery-api/internal/pkg/otp"
	"github.com/go-recovery-api/internal/pkg/token"
)

// IssuedPasscode is what Issue hands back: the opaque flow handle, the
// plaintext code for the notifier, and the absolute expiry. The plaintext is
// never persisted.
type IssuedPasscode struct {
	Token     string
	Code      string
	ExpiresAt time.Time
}

// IssuerDeps lists the collaborators an Issuer needs.
type IssuerDeps struct {
	Store      PasscodeStore
	Identities IdentityStore
	Limiter    IssueLimiter
	Notifier   Notifier
	Options    Options
	Now        func() time.Time // defaults to time.Now
}

// Issuer creates passcodes for an (address, purpose) pair, invalidating any
// prior unconsumed ones and enforcing per-address issuance throttling.
type Issuer struct {
	store      PasscodeStore
	identities IdentityStore
	limiter    IssueLimiter
	notifier   Notifier
	opts       Options
	now        func() time.Time
}

func NewIssuer(d IssuerDeps) *Issuer {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Issuer{
		store:      d.Store,
		identities: d.Identities,
		limiter:    d.Limiter,
		notifier:   d.Notifier,
		opts:       d.Options,
		now:        d.Now,
	}
}

// Issue creates exactly one fresh passcode for (address, purpose) and hands
// it to the notifier. It returns once the record is durably persisted;
// delivery happens in the background and its failure is logged, never rolled
// back. Unknown addresses fail with domain.ErrNotFound and throttled calls
// with domain.ErrRateLimited, both before any state mutation.
func (i *Issuer) Issue(ctx context.Context, address, purpose string) (*IssuedPasscode, error) {
	account, err := i.identities.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown address: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("resolve account: %w", err)
	}

	if err := i.limiter.Allow(ctx, address); err != nil {
		return nil, fmt.Errorf("issuance throttled: %w", err)
	}

	// One usable passcode per (address, purpose): reissuing invalidates all
	// prior unconsumed ones. Records already used by an in-flight recovery
	// are left alone.
	stale, err := i.store.FindUnusedByAddressAndPurpose(ctx, address, purpose)
	if err != nil {
		return nil, fmt.Errorf("find stale passcodes: %w", err)
	}
	for _, p := range stale {
		if err := i.store.DeleteByToken(ctx, p.Token); err != nil {
			return nil, fmt.Errorf("invalidate stale passcode: %w", err)
		}
	}

	tok, err := token.New()
	if err != nil {
		return nil, err
	}
	code, err := otp.NewCode(i.opts.CodeLength)
	if err != nil {
		return nil, err
	}
	digest, err := otp.Digest(code)
	if err != nil {
		return nil, fmt.Errorf("digest code: %w", err)
	}

	now := i.now().UTC()
	expiresAt := now.Add(i.opts.TTL)
	p := &domain.Passcode{
		Token:      tok,
		Address:    address,
		Purpose:    purpose,
		CodeDigest: digest,
		IssuedAt:   now,
		ExpiresAt:  expiresAt.Unix(),
		Attempts:   0,
	}
	if err := i.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("persist passcode: %w", err)
	}

	slog.Info("passcode issued", "account_id", account.AccountID, "purpose", purpose, "expires_at", expiresAt)

	// Fire-and-forget delivery: the caller gets its answer once the record
	// is durable, not once the email/SMS went out.
	go func(ctx context.Context) {
		if err := i.notifier.Deliver(ctx, address, code, purpose); err != nil {
			slog.Error("passcode delivery failed", "purpose", purpose, "err", err)
		}
	}(context.WithoutCancel(ctx))

	return &IssuedPasscode{Token: tok, Code: code, ExpiresAt: expiresAt}, nil
}
