// Package notify sends the run outcome by email.
package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

const DefaultSubject = "NPPES Data Reload Status"

// Notifier delivers a plain-text message about a run.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }

// SMTPConfig describes the relay and the single recipient.
type SMTPConfig struct {
	Server    string
	Port      int
	User      string
	Password  string
	Recipient string
}

// SMTP sends through a relay using mandatory STARTTLS and PLAIN auth.
type SMTP struct {
	cfg  SMTPConfig
	dial func(ctx context.Context, c *mail.Client, m *mail.Msg) error
}

// NewSMTP returns an SMTP notifier. Nothing is dialled until Notify.
func NewSMTP(cfg SMTPConfig) *SMTP {
	return &SMTP{
		cfg: cfg,
		dial: func(ctx context.Context, c *mail.Client, m *mail.Msg) error {
			return c.DialAndSendWithContext(ctx, m)
		},
	}
}

// Message builds the email without sending it.
func (s *SMTP) Message(subject, body string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.User); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.cfg.User, err)
	}
	if err := m.To(s.cfg.Recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", s.cfg.Recipient, err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)
	return m, nil
}

func (s *SMTP) Notify(ctx context.Context, subject, body string) error {
	m, err := s.Message(subject, body)
	if err != nil {
		return err
	}

	c, err := mail.NewClient(s.cfg.Server,
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := s.dial(ctx, c, m); err != nil {
		return fmt.Errorf("failed to send email via %s:%d: %w", s.cfg.Server, s.cfg.Port, err)
	}
	return nil
}
