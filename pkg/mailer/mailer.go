// Package mailer delivers transactional email. Delivery is fire-and-forget
// from the caller's point of view: failures are reported, never retried here.
package mailer

import (
	"context"
	"fmt"
	"strings"
)

const (
	TemplateEmailVerification = "email_verification"
	TemplatePasswordReset     = "password_reset"
)

// Message is one outgoing email. Data carries the template variables so a
// downstream renderer can produce HTML; Body is the plain-text fallback.
type Message struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
	Body     string            `json:"body"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// VerificationEmail builds the message sent after registration.
func VerificationEmail(to, link string) Message {
	return Message{
		To:       to,
		Subject:  "Verify your email",
		Template: TemplateEmailVerification,
		Data:     map[string]string{"link": link},
		Body:     fmt.Sprintf("Welcome! Confirm your email address by opening this link:\n\n%s\n", link),
	}
}

// PasswordResetEmail builds the message carrying a one-time reset code.
func PasswordResetEmail(to, code string, validFor string) Message {
	return Message{
		To:       to,
		Subject:  "Your password reset code",
		Template: TemplatePasswordReset,
		Data:     map[string]string{"otp": code, "valid_for": validFor},
		Body:     fmt.Sprintf("Your password reset code is %s. It expires in %s.\n", code, validFor),
	}
}

func validate(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("mail subject is required")
	}
	return nil
}

func withFrom(msg Message, from string) Message {
	if msg.From == "" {
		msg.From = from
	}
	return msg
}
