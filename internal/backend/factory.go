package backend

import (
	"context"
	"fmt"

	"rendiconto/internal/amqp"
	"rendiconto/internal/bookkeeping"
	"rendiconto/internal/bookkeeping/memory"
	"rendiconto/internal/bookkeeping/morning"
	"rendiconto/internal/config"
	"rendiconto/internal/delivery"
	"rendiconto/internal/delivery/gmail"
	"rendiconto/internal/delivery/outbox"
	"rendiconto/internal/delivery/smtp"
	applog "rendiconto/internal/log"
)

// Factory builds the configured collaborators.
type Factory struct {
	logger *applog.Logger
	// dialEvents is swapped in tests.
	dialEvents func(url, exchange, queue string) (*amqp.Client, error)
}

func NewFactory(logger *applog.Logger) *Factory {
	if logger == nil {
		logger = applog.Default(applog.ComponentApp)
	}
	return &Factory{logger: logger, dialEvents: amqp.NewClient}
}

// Create builds bookkeeping, delivery and, when AMQP_URL is set, the event
// publisher. A broker that cannot be reached
// disables events with a warning.
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is nil")
	}

	books, err := f.createBookkeeping(cfg)
	if err != nil {
		return nil, err
	}
	sender, err := f.createSender(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{Books: books, Sender: sender}

	if cfg.AMQPURL != "" {
		client, err := f.dialEvents(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
			res.Events = client
			res.Cleanup = client.Close
		}
	}
	return res, nil
}

func (f *Factory) createBookkeeping(cfg *config.Config) (bookkeeping.Client, error) {
	t := BookkeepingType(cfg.BookkeepingBackend)
	switch t {
	case MorningBookkeeping:
		client, err := morning.New(morning.Config{
			TokenURL:   cfg.MorningTokenURL,
			APIKeyID:   cfg.MorningAPIKey,
			Secret:     cfg.MorningSecret,
			IncomeURL:  cfg.MorningIncomeURL,
			ExpenseURL: cfg.MorningExpenseURL,
			PageSize:   cfg.MorningPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize morning client: %w", err)
		}
		f.logger.Info("Initialized bookkeeping backend", applog.FieldBackend, t.String())
		return client, nil

	case MemoryBookkeeping:
		store, err := memory.NewFromFiles(cfg.MemoryFixturesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load memory fixtures: %w", err)
		}
		f.logger.Info("Initialized bookkeeping backend",
			applog.FieldBackend, t.String(),
			"fixtures_dir", cfg.MemoryFixturesDir)
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported bookkeeping backend: %s", t)
	}
}

func (f *Factory) createSender(ctx context.Context, cfg *config.Config) (delivery.Sender, error) {
	t := DeliveryType(cfg.DeliveryBackend)
	var (
		sender delivery.Sender
		err    error
	)
	switch t {
	case GmailDelivery:
		sender, err = f.createGmail(ctx, cfg)
	case SMTPDelivery:
		sender, err = smtp.New(smtp.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			Insecure: cfg.SMTPInsecure,
		})
	case OutboxDelivery:
		sender, err = outbox.New(cfg.OutboxDir)
	default:
		return nil, fmt.Errorf("unsupported delivery backend: %s", t)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s delivery: %w", t, err)
	}
	f.logger.Info("Initialized delivery backend", applog.FieldBackend, t.String())
	return sender, nil
}

func (f *Factory) createGmail(ctx context.Context, cfg *config.Config) (delivery.Sender, error) {
	clientJSON, err := cfg.OAuthClientJSON()
	if err != nil {
		return nil, err
	}
	tokenJSON, err := cfg.OAuthTokenJSON()
	if err != nil {
		return nil, err
	}
	return gmail.New(ctx, gmail.Config{ClientJSON: clientJSON, TokenJSON: tokenJSON})
}
