package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/garmentrack/garmentrack/internal/cache"
	"github.com/garmentrack/garmentrack/internal/config"
	"github.com/garmentrack/garmentrack/internal/db"
	"github.com/garmentrack/garmentrack/internal/email"
	"github.com/garmentrack/garmentrack/internal/events"
	"github.com/garmentrack/garmentrack/internal/handlers"
	"github.com/garmentrack/garmentrack/internal/identity"
	"github.com/garmentrack/garmentrack/internal/logging"
	"github.com/garmentrack/garmentrack/internal/memstore"
	"github.com/garmentrack/garmentrack/internal/notify"
	"github.com/garmentrack/garmentrack/internal/services"
	"github.com/garmentrack/garmentrack/internal/session"
)

const kafkaPublishBuffer = 256

// Stores groups the repositories behind the services.
type Stores struct {
	Orders   services.OrderRepository
	Products services.ProductRepository
	Users    services.UserRepository
}

type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	DB             *pgxpool.Pool
	Stores         Stores
	CacheProvider  cache.Provider
	SessionManager *session.Manager
	Publisher      events.Publisher
	Notifier       *notify.Notifier
	OrderService   *services.OrderService
	ProductService *services.ProductService
	Handlers       *handlers.Handlers

	logFile io.Closer
}

// Base holds what every command needs: config, logging, the store and the cache.
func Base(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, logFile: logFile}

	if err := initSentry(cfg); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.UsesMemoryStore() {
		store := memstore.New()
		a.Stores = Stores{Orders: store.Orders, Products: store.Products, Users: store.Users}
		logger.Warn("using in-memory store; data is lost on restart")
	} else {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.DB = database
		a.Stores = Stores{
			Orders:   db.NewOrderStore(database),
			Products: db.NewProductStore(database),
			Users:    db.NewUserStore(database),
		}
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
		MemorySize:            cfg.CacheMemorySize,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}
	a.CacheProvider = cacheProvider

	a.ProductService = services.NewProductService(a.Stores.Products, a.Stores.Users, logger.With("component", "product_service"))
	return a, nil
}

// New builds the full API process: Base plus sessions, events, services and handlers.
func New() (*App, error) {
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	a, err := Base(startupCtx)
	if err != nil {
		return nil, err
	}
	cfg, logger := a.Config, a.Logger

	sessionStore, err := session.NewStore(startupCtx, session.Config{
		Provider:              cfg.SessionStoreProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	a.SessionManager = session.NewManager(sessionStore, handlers.SecureCookiesFromConfig(cfg))

	verifier, err := identity.NewVerifier(cfg.IdentitySigningSecret, cfg.IdentityIssuer)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize identity verifier: %w", err)
	}

	if err := a.initEvents(); err != nil {
		a.Close()
		return nil, err
	}

	a.OrderService = services.NewOrderService(
		a.Stores.Orders,
		a.Stores.Products,
		a.Stores.Users,
		a.Publisher,
		a.CacheProvider,
		logger.With("component", "order_service"),
	)
	userService := services.NewUserService(a.Stores.Users, logger.With("component", "user_service"))
	analyticsService := services.NewAnalyticsService(
		a.Stores.Orders,
		a.Stores.Products,
		a.Stores.Users,
		a.CacheProvider,
		services.AnalyticsConfig{Location: cfg.Location(), CacheTTL: cfg.AnalyticsCacheTTL},
		logger.With("component", "analytics_service"),
	)

	var pinger handlers.Pinger
	if a.DB != nil {
		pinger = a.DB
	}
	h, err := handlers.New(handlers.Dependencies{
		Config:           cfg,
		Store:            pinger,
		SessionManager:   a.SessionManager,
		Verifier:         verifier,
		OrderService:     a.OrderService,
		ProductService:   a.ProductService,
		UserService:      userService,
		AnalyticsService: analyticsService,
		Logger:           logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}
	a.Handlers = h

	return a, nil
}

// initEvents publishes to Kafka when brokers are configured. Otherwise the
// notifier runs inline in the API process.
func (a *App) initEvents() error {
	cfg, logger := a.Config, a.Logger

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, kafkaPublishBuffer, logger.With("component", "kafka_publisher"))
		if err != nil {
			return fmt.Errorf("failed to initialize kafka publisher: %w", err)
		}
		a.Publisher = publisher
		return nil
	}

	notifier, err := a.NewNotifier()
	if err != nil {
		return err
	}
	a.Notifier = notifier
	a.Publisher = events.NewInlinePublisher(logger.With("component", "inline_publisher"), notifier.Handle)
	return nil
}

// NewNotifier builds the buyer email notifier from the configured provider.
func (a *App) NewNotifier() (*notify.Notifier, error) {
	provider, err := email.NewProvider(email.Config{
		Provider: strings.ToLower(a.Config.EmailProvider),
		APIKey:   a.Config.EmailAPIKey(),
		From:     a.Config.EmailFrom,
		Domain:   a.Config.MailgunDomain,
	}, a.Logger.With("component", "email"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}

	notifier, err := notify.New(provider, a.CacheProvider, notify.Config{
		BaseURL:  a.Config.BaseURL,
		Location: a.Config.Location(),
	}, a.Logger.With("component", "notifier"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}
	return notifier, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Logger.Warn("failed to close event publisher", "error", err)
		}
	}
	if a.SessionManager != nil {
		closeSessionManager(a.Logger, a.SessionManager)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Config != nil && a.Config.SentryDSN != "" {
		sentry.Flush(2 * time.Second)
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

func initSentry(cfg *config.Config) error {
	if cfg.SentryDSN == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		TracesSampleRate: cfg.SentryTracesSampleRate,
		EnableLogs:       true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return nil
}

// newLogger writes to stdout (tint or JSON), optionally mirrors Info and
// above to a JSON file, and forwards warnings to Sentry when it is enabled.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	var console slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "json":
		console = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	default:
		console = tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel})
	}
	sinks := []slog.Handler{console}

	var closer io.Closer
	if path := strings.TrimSpace(cfg.LogFile); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		closer = file
		sinks = append(sinks, logging.MinLevel(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: cfg.LogLevel}), slog.LevelInfo))
	}

	if cfg.SentryDSN != "" {
		sinks = append(sinks, sentryslog.Option{
			EventLevel: []slog.Level{slog.LevelError},
			LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
		}.NewSentryHandler(context.Background()))
	}

	return slog.New(logging.MultiHandler(sinks...)), closer, nil
}

func closeSessionManager(logger *slog.Logger, manager *session.Manager) {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("failed to close session manager", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
