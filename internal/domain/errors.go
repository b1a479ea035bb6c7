package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrRateLimited  = errors.New("rate limited")
)

// RejectReason identifies why a passcode operation was refused. Reasons are
// logged for audit and anti-abuse tuning but never sent to the caller; the
// HTTP layer collapses all of them into one generic message.
type RejectReason string

const (
	ReasonInvalidToken RejectReason = "invalid_token"
	ReasonMismatch     RejectReason = "mismatch"
	ReasonAlreadyUsed  RejectReason = "already_used"
	ReasonExpired      RejectReason = "expired"
	ReasonLockedOut    RejectReason = "locked_out"
	ReasonWrongCode    RejectReason = "wrong_code"
	ReasonNotVerified  RejectReason = "not_verified"
)

// RecoveryError is a verification or completion rejection. It wraps
// ErrUnauthorized so errors.Is(err, ErrUnauthorized) holds for every reason.
type RecoveryError struct {
	Reason RejectReason
}

func (e *RecoveryError) Error() string {
	return "recovery rejected: " + string(e.Reason)
}

func (e *RecoveryError) Unwrap() error {
	return ErrUnauthorized
}

// Reject builds a RecoveryError for the given reason.
func Reject(reason RejectReason) error {
	return &RecoveryError{Reason: reason}
}

// ReasonOf extracts the rejection reason from an error chain, or "" when the
// error carries none.
func ReasonOf(err error) RejectReason {
	var re *RecoveryError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}
