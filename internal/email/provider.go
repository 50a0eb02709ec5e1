// Package email sends buyer notifications.
package email

import (
	"context"
	"fmt"
	"log/slog"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
	ValidateAPIKey(ctx context.Context) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Provider string
	APIKey   string
	From     string
	// Domain is the Mailgun sending domain.
	Domain string
}

func NewProvider(config Config, logger *slog.Logger) (Provider, error) {
	switch config.Provider {
	case "", "none":
		return NewLogProvider(logger), nil
	case "resend":
		if config.APIKey == "" || config.From == "" {
			return nil, fmt.Errorf("resend requires an API key and a from address")
		}
		return NewResendProvider(config.APIKey, config.From), nil
	case "postmark":
		if config.APIKey == "" || config.From == "" {
			return nil, fmt.Errorf("postmark requires a server token and a from address")
		}
		return NewPostmarkProvider(config.APIKey, config.From), nil
	case "mailgun":
		if config.APIKey == "" || config.From == "" || config.Domain == "" {
			return nil, fmt.Errorf("mailgun requires an API key, a sending domain and a from address")
		}
		return NewMailgunProvider(config.APIKey, config.Domain, config.From), nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be one of none, resend, postmark or mailgun")
	}
}

// LogProvider records outgoing mail in the log instead of sending it.
type LogProvider struct {
	logger *slog.Logger
}

func NewLogProvider(logger *slog.Logger) *LogProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProvider{logger: logger}
}

func (p *LogProvider) SendEmail(ctx context.Context, email *Email) error {
	if email == nil {
		return fmt.Errorf("email is required")
	}
	p.logger.InfoContext(ctx, "email suppressed", "to", email.To, "subject", email.Subject)
	return nil
}

func (p *LogProvider) ValidateAPIKey(context.Context) error {
	return nil
}
