// Package notify dispatches issued passcodes to a delivery channel. Email
// addresses go through SMTP, anything else is treated as a phone number and
// sent via SNS.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-recovery-api/internal/infrastructure/smtp"
	"github.com/go-recovery-api/internal/infrastructure/sns"
)

type Notifier struct {
	mailer smtp.Mailer
	sms    sns.SMSSender
}

func New(mailer smtp.Mailer, sms sns.SMSSender) *Notifier {
	return &Notifier{mailer: mailer, sms: sms}
}

// Deliver sends the plaintext code to the address. Callers treat delivery as
// best-effort; the passcode record is already durable when this runs.
func (n *Notifier) Deliver(ctx context.Context, address, code, purpose string) error {
	if strings.Contains(address, "@") {
		if n.mailer == nil {
			return errors.New("no mail channel configured")
		}
		subject, body := renderEmail(code, purpose)
		return n.mailer.SendEmail(address, subject, body)
	}
	if n.sms == nil {
		return errors.New("no sms channel configured")
	}
	return n.sms.SendSMS(ctx, address, fmt.Sprintf("Your verification code: %s", code))
}

func renderEmail(code, purpose string) (subject, body string) {
	switch purpose {
	case "password_reset":
		subject = "Password recovery code"
	default:
		subject = "Verification code"
	}
	body = fmt.Sprintf("Your code: %s\r\n\r\nIf you did not request this, you can ignore this message.", code)
	return subject, body
}
