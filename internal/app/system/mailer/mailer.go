// Package mailer delivers transactional email.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Email is one outbound message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers an Email. A nil error means the message was accepted by
// the relay.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config describes the SMTP relay.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// SSL selects implicit TLS (port 465). Otherwise STARTTLS is used when
	// the server offers it.
	SSL bool
}

// SMTP sends mail through a relay.
type SMTP struct {
	cfg    Config
	client *mail.Client
	log    *zap.Logger
}

// NewSMTP builds a client for cfg. No connection is made until Send.
func NewSMTP(cfg Config, log *zap.Logger) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("mailer: smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mailer: from address is required")
	}
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	return &SMTP{cfg: cfg, client: c, log: log}, nil
}

// Send builds a multipart message and hands it to the relay.
func (s *SMTP) Send(ctx context.Context, e Email) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return fmt.Errorf("mailer: from: %w", err)
	}
	if err := m.To(e.To); err != nil {
		return fmt.Errorf("mailer: to: %w", err)
	}
	m.Subject(e.Subject)
	if e.TextBody != "" {
		m.SetBodyString(mail.TypeTextPlain, e.TextBody)
		if e.HTMLBody != "" {
			m.AddAlternativeString(mail.TypeTextHTML, e.HTMLBody)
		}
	} else {
		m.SetBodyString(mail.TypeTextHTML, e.HTMLBody)
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		s.log.Warn("email send failed",
			zap.String("to", e.To),
			zap.String("subject", e.Subject),
			zap.Error(err))
		return fmt.Errorf("mailer: send: %w", err)
	}
	s.log.Info("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}

// LogSender writes messages to the log instead of sending them. Used in
// development when no relay is configured.
type LogSender struct {
	Log *zap.Logger
}

func (l LogSender) Send(_ context.Context, e Email) error {
	l.Log.Info("email (not sent, no smtp relay configured)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.String("text", e.TextBody))
	return nil
}
