package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// NewCode generates a uniformly distributed numeric code of the given number
// of digits. Leading zeros are preserved ("004213" is a valid 6-digit code).
func NewCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", fmt.Errorf("unsupported code length %d", digits)
	}
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// Digest hashes a plaintext code with bcrypt. The digest is what gets
// persisted; the plaintext only exists in memory between generation and
// delivery.
func Digest(code string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
}

// Match compares a submitted code against a stored digest. bcrypt's
// comparison is constant-time with respect to the code contents.
func Match(digest []byte, code string) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(code)) == nil
}
