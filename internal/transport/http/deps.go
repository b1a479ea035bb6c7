package http

import (
	"github.com/go-recovery-api/internal/application/recovery"
)

// Deps holds the infrastructure dependencies the router wires into the
// recovery core. All fields are the core's consumer interfaces, so any
// backend (DynamoDB, in-memory) satisfying them plugs in.
type Deps struct {
	PasscodeRepo recovery.PasscodeStore
	AccountRepo  recovery.IdentityStore
	Notifier     recovery.Notifier
	IssueLimiter recovery.IssueLimiter
}
