package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/multiplayers/arena/internal/guard"
)

const mailerCircuitKey = "smtp_relay"

// Mailer delivers plain-text mail over SMTP. A circuit breaker keeps a dead
// relay from tying up login requests for the full dial timeout.
type Mailer struct {
	client  *mail.Client
	sender  string
	logger  *slog.Logger
	breaker *guard.CircuitBreaker
}

// NewMailer creates an SMTP mailer from config.
func NewMailer(cfg *Config, logger *slog.Logger, breaker *guard.CircuitBreaker) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	if cfg.SMTPUseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Mailer{client: client, sender: cfg.SMTPSender, logger: logger, breaker: breaker}, nil
}

// Send delivers a single plain-text message.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if m.breaker != nil {
		if res := m.breaker.Check(ctx, mailerCircuitKey); !res.Allowed {
			return fmt.Errorf("smtp: %s", res.Reason)
		}
	}

	msg := mail.NewMsg()
	if err := msg.From(m.sender); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		if m.breaker != nil {
			m.breaker.RecordFailure(mailerCircuitKey)
		}
		m.logger.Error("smtp send failed", "to", to, "error", err)
		return fmt.Errorf("send mail: %w", err)
	}

	if m.breaker != nil {
		m.breaker.RecordSuccess(mailerCircuitKey)
	}
	return nil
}
