// Package container provides dependency injection for the application.
// It centralizes the creation and wiring of all components, making them
// explicit and testable.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/auth"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/categorizer"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/classify"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/config"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/extractor"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/identifier"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/ingest"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/mail"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/normalizer"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/schema"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/store"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/voucher"
)

// Container holds all application dependencies. It is immutable after
// creation; components are reached through getters only.
type Container struct {
	logger   logging.Logger
	config   *config.Config
	store    *store.Store
	jwt      *auth.JWTManager
	mailer   mail.Mailer
	ingest   *ingest.Service
	vouchers *voucher.Service

	closers []func() error
}

// NewContainer creates and wires all application dependencies.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	logger := config.ConfigureLogging(cfg)

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, err
	}

	c := &Container{
		logger: logger,
		config: cfg,
		store:  st,
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret must be configured")
	}
	c.jwt = auth.NewJWTManager(
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
		cfg.Auth.Issuer,
	)

	if cfg.SMTP.Host != "" {
		c.mailer = mail.NewSMTPMailer(
			cfg.SMTP.Host, cfg.SMTP.Port,
			cfg.SMTP.Username, cfg.SMTP.Password,
			cfg.SMTP.From, logger,
		)
	} else {
		c.mailer = mail.Nop{Logger: logger}
	}

	client, err := c.buildClassifyClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	c.ingest = ingest.NewService(
		extractor.New(logger),
		identifier.New(client, timeout, logger),
		schema.NewMapper(logger),
		normalizer.New(logger),
		categorizer.New(client, timeout, logger),
		st,
		logger,
	)

	c.vouchers = voucher.NewService(st, logger)

	return c, nil
}

// buildClassifyClient selects the classification provider, or returns nil
// when AI is disabled (the pipeline then degrades to fallback labels).
func (c *Container) buildClassifyClient(cfg *config.Config, logger logging.Logger) (classify.Client, error) {
	if !cfg.AI.Enabled || cfg.AI.APIKey == "" {
		logger.Info("AI classification disabled")
		return nil, nil
	}

	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	switch cfg.AI.Provider {
	case "gemini":
		client, err := classify.NewGeminiClient(context.Background(), cfg.AI.APIKey, cfg.AI.Model, logger)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		logger.Info("AI classification enabled",
			logging.Field{Key: "provider", Value: "gemini"},
			logging.Field{Key: "model", Value: cfg.AI.Model})
		return client, nil
	default:
		logger.Info("AI classification enabled",
			logging.Field{Key: "provider", Value: "groq"},
			logging.Field{Key: "model", Value: cfg.AI.Model})
		return classify.NewGroqClient(cfg.AI.APIKey, "", cfg.AI.Model, timeout, logger), nil
	}
}

// Logger returns the application logger.
func (c *Container) Logger() logging.Logger { return c.logger }

// Config returns the application configuration.
func (c *Container) Config() *config.Config { return c.config }

// Store returns the persistence layer.
func (c *Container) Store() *store.Store { return c.store }

// JWT returns the token manager.
func (c *Container) JWT() *auth.JWTManager { return c.jwt }

// Mailer returns the transactional mailer.
func (c *Container) Mailer() mail.Mailer { return c.mailer }

// Ingest returns the statement ingestion service.
func (c *Container) Ingest() *ingest.Service { return c.ingest }

// Vouchers returns the voucher service.
func (c *Container) Vouchers() *voucher.Service { return c.vouchers }

// Close releases provider connections.
func (c *Container) Close() error {
	var firstErr error
	for _, closer := range c.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
