package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// New generates a cryptographically random, URL-safe token carrying 256 bits
// of entropy. The token is the external handle for a recovery flow and is the
// only identifier ever exposed to callers.
func New() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
