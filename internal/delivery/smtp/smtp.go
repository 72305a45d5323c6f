// Package smtp delivers reports through an SMTP relay.
package smtp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"rendiconto/internal/delivery"
	applog "rendiconto/internal/log"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// Insecure allows plaintext relays, e.g. a local catcher in development.
	Insecure bool
	Timeout  time.Duration
}

type Sender struct {
	client *mail.Client
}

// Ensure interface conformance
var _ delivery.Sender = (*Sender)(nil)

func New(cfg Config) (*Sender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp: missing host")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Insecure {
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &Sender{client: c}, nil
}

// Send delivers msg and returns its Message-ID.
func (s *Sender) Send(ctx context.Context, msg delivery.Message) (string, error) {
	m, err := delivery.Build(msg)
	if err != nil {
		return "", err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	id := delivery.MessageID(m)
	applog.FromContext(ctx).WithComponent(applog.ComponentDelivery).InfoContext(ctx, "Report sent via SMTP",
		applog.FieldDeliveryID, id, "to", msg.To)
	return id, nil
}
