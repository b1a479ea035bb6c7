package domain

import "time"

// Passcode purposes. Passcodes issued for one purpose never validate against
// another.
const (
	PurposePasswordReset = "password_reset"
)

// Passcode is a single-use numeric code bound to an address and purpose.
// PK: token. The plaintext code is never persisted; CodeDigest holds a
// bcrypt hash of it. ExpiresAt is Unix seconds and doubles as the DynamoDB
// TTL attribute.
type Passcode struct {
	Token      string     `json:"token" dynamodbav:"token"`
	Address    string     `json:"address" dynamodbav:"address"`
	Purpose    string     `json:"purpose" dynamodbav:"purpose"`
	CodeDigest []byte     `json:"-" dynamodbav:"code_digest"`
	IssuedAt   time.Time  `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt  int64      `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	Attempts   int        `json:"attempts" dynamodbav:"attempts"`
	UsedAt     *time.Time `json:"used_at,omitempty" dynamodbav:"used_at,omitempty"`
}

// Expired reports whether the passcode's validity window has passed.
func (p *Passcode) Expired(now time.Time) bool {
	return now.Unix() > p.ExpiresAt
}

// Used reports whether the passcode has already been consumed by a
// successful verification.
func (p *Passcode) Used() bool {
	return p.UsedAt != nil
}
