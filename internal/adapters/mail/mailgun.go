package mail

// Package mail delivers the identity flows' transactional email.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

// MailgunConfig holds the Mailgun client configuration.
type MailgunConfig struct {
	Domain  string
	APIKey  string
	Sender  string
	BaseURL string // app base URL embedded in action links
}

// Mailgun sends verification and password-reset mail through Mailgun.
type Mailgun struct {
	cfg MailgunConfig
}

var _ ports.MailSender = (*Mailgun)(nil)

func NewMailgun(cfg MailgunConfig) (*Mailgun, error) {
	if cfg.Domain == "" {
		return nil, errorsx.Validation("mailgun domain is required")
	}
	if cfg.APIKey == "" {
		return nil, errorsx.Validation("mailgun API key is required")
	}
	if cfg.Sender == "" {
		return nil, errorsx.Validation("mailgun sender is required")
	}
	return &Mailgun{cfg: cfg}, nil
}

func (m *Mailgun) SendVerification(ctx context.Context, email, code string) error {
	link := fmt.Sprintf("%s/auth/action?mode=verifyEmail&oobCode=%s", m.cfg.BaseURL, code)
	text := fmt.Sprintf("Confirm your email address by opening this link:\n\n%s\n", link)
	return m.send(ctx, email, "Verify your email", text)
}

func (m *Mailgun) SendPasswordReset(ctx context.Context, email, code string) error {
	link := fmt.Sprintf("%s/auth/action?mode=resetPassword&oobCode=%s", m.cfg.BaseURL, code)
	text := fmt.Sprintf("Reset your password by opening this link:\n\n%s\n\nIf you did not request this, you can ignore this email.\n", link)
	return m.send(ctx, email, "Reset your password", text)
}

func (m *Mailgun) send(ctx context.Context, to, subject, text string) error {
	client := mg.NewMailgun(m.cfg.Domain, m.cfg.APIKey)
	msg := client.NewMessage(m.cfg.Sender, subject, text, to)

	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, _, err := client.Send(c, msg); err != nil {
		return errorsx.Wrap(err, errorsx.ErrCodeNetwork, "mailgun send")
	}
	return nil
}

// Noop logs instead of sending. Used in dev mode when no Mailgun domain is
// configured.
type Noop struct {
	Logger *slog.Logger
}

var _ ports.MailSender = (*Noop)(nil)

func (n *Noop) SendVerification(_ context.Context, email, code string) error {
	n.logger().Info("mail suppressed", "kind", "verification", "email", email, "code", code)
	return nil
}

func (n *Noop) SendPasswordReset(_ context.Context, email, code string) error {
	n.logger().Info("mail suppressed", "kind", "password_reset", "email", email, "code", code)
	return nil
}

func (n *Noop) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}
