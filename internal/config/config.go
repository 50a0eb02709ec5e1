package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"postgres" validate:"omitempty,oneof=memory postgres"`
	DatabaseURL   string `env:"DATABASE_URL" validate:"required_unless=StoreProvider memory"`

	BaseURL string `env:"BASE_URL" validate:"omitempty,url"`
	Port    string `env:"PORT" envDefault:"8080"`

	IdentitySigningSecret string `env:"IDENTITY_SIGNING_SECRET,required" validate:"required,min=32"`
	IdentityIssuer        string `env:"IDENTITY_ISSUER"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	CacheMemorySize       int    `env:"CACHE_MEMORY_SIZE" envDefault:"1024" validate:"min=1"`
	SessionStoreProvider  string `env:"SESSION_STORE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis,required_if=SessionStoreProvider redis"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"garmentrack.orders"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"garmentrack-notifier"`
	KafkaWorkers int      `env:"KAFKA_WORKERS" envDefault:"4" validate:"min=1,max=64"`

	// Empty means KafkaTopic + ".dead-letter".
	KafkaDeadLetterTopic string `env:"KAFKA_DEAD_LETTER_TOPIC"`

	EmailProvider       string `env:"EMAIL_PROVIDER" envDefault:"none" validate:"omitempty,oneof=none resend postmark mailgun"`
	ResendAPIKey        string `env:"RESEND_API_KEY"`
	PostmarkServerToken string `env:"POSTMARK_SERVER_TOKEN"`
	MailgunAPIKey       string `env:"MAILGUN_API_KEY"`
	MailgunDomain       string `env:"MAILGUN_DOMAIN"`
	EmailFrom           string `env:"EMAIL_FROM" validate:"omitempty,email"`

	SentryDSN              string  `env:"SENTRY_DSN" validate:"omitempty,url"`
	SentryEnvironment      string  `env:"SENTRY_ENVIRONMENT" envDefault:"development"`
	SentryTracesSampleRate float64 `env:"SENTRY_TRACES_SAMPLE_RATE" envDefault:"0.2" validate:"min=0,max=1"`

	AnalyticsTimezone string        `env:"ANALYTICS_TIMEZONE" envDefault:"UTC"`
	AnalyticsCacheTTL time.Duration `env:"ANALYTICS_CACHE_TTL" envDefault:"5m" validate:"min=0"`

	CatalogSeedPath string `env:"CATALOG_SEED_PATH" envDefault:"catalog.yaml"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	LogFile   string     `env:"LOG_FILE"`

	location *time.Location
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	switch strings.ToLower(c.EmailProvider) {
	case "resend":
		if strings.TrimSpace(c.ResendAPIKey) == "" || strings.TrimSpace(c.EmailFrom) == "" {
			return fmt.Errorf("RESEND_API_KEY and EMAIL_FROM are required when EMAIL_PROVIDER is resend")
		}
	case "postmark":
		if strings.TrimSpace(c.PostmarkServerToken) == "" || strings.TrimSpace(c.EmailFrom) == "" {
			return fmt.Errorf("POSTMARK_SERVER_TOKEN and EMAIL_FROM are required when EMAIL_PROVIDER is postmark")
		}
	case "mailgun":
		if strings.TrimSpace(c.MailgunAPIKey) == "" || strings.TrimSpace(c.MailgunDomain) == "" || strings.TrimSpace(c.EmailFrom) == "" {
			return fmt.Errorf("MAILGUN_API_KEY, MAILGUN_DOMAIN and EMAIL_FROM are required when EMAIL_PROVIDER is mailgun")
		}
	}

	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("BASE_URL must be a valid absolute URL")
		}
		if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
			return fmt.Errorf("BASE_URL must use https outside local development")
		}
	}

	loc, err := time.LoadLocation(strings.TrimSpace(c.AnalyticsTimezone))
	if err != nil {
		return fmt.Errorf("ANALYTICS_TIMEZONE is not a known time zone: %w", err)
	}
	c.location = loc

	return nil
}

// EmailAPIKey returns the credential of the configured email provider.
func (c *Config) EmailAPIKey() string {
	switch strings.ToLower(c.EmailProvider) {
	case "resend":
		return c.ResendAPIKey
	case "postmark":
		return c.PostmarkServerToken
	case "mailgun":
		return c.MailgunAPIKey
	default:
		return ""
	}
}

// Location is the analytics time zone. It falls back to UTC on an unvalidated config.
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.UTC
	}
	return c.location
}

// UsesMemoryStore reports whether orders, products and users live in process memory.
func (c *Config) UsesMemoryStore() bool {
	return strings.EqualFold(c.StoreProvider, "memory")
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
