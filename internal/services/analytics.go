package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/errgroup"

	"github.com/garmentrack/garmentrack/internal/access"
	"github.com/garmentrack/garmentrack/internal/analytics"
	"github.com/garmentrack/garmentrack/internal/cache"
	"github.com/garmentrack/garmentrack/internal/db"
	"github.com/garmentrack/garmentrack/internal/lifecycle"
	"github.com/garmentrack/garmentrack/internal/logging"
	"github.com/garmentrack/garmentrack/internal/models"
)

type AnalyticsConfig struct {
	Location *time.Location
	CacheTTL time.Duration
}

type AnalyticsService struct {
	orders   OrderRepository
	products ProductRepository
	users    UserRepository
	cache    cache.Provider
	config   AnalyticsConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewAnalyticsService(orders OrderRepository, products ProductRepository, users UserRepository, cacheProvider cache.Provider, cfg AnalyticsConfig, logger *slog.Logger) *AnalyticsService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &AnalyticsService{
		orders:   orders,
		products: products,
		users:    users,
		cache:    cacheProvider,
		config:   cfg,
		logger:   logger,
		now:      defaultClock,
	}
}

func (s *AnalyticsService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// dashboardScope is what a caller's dashboard aggregates over.
type dashboardScope struct {
	role        models.Role
	key         string
	orders      db.OrderFilter
	products    *db.ProductFilter
	includeUser bool
}

// scopeFor derives the dashboard from the caller's permissions: user
// managers get the whole system, product managers their own catalog, and
// everyone else their own purchases.
func scopeFor(actor *models.User) (dashboardScope, error) {
	perms := access.ForUser(actor)
	email := models.NormalizeEmail(actor.Email)

	switch {
	case perms.CanManageUsers:
		return dashboardScope{
			role:        models.RoleAdmin,
			key:         "admin",
			products:    &db.ProductFilter{},
			includeUser: true,
		}, nil
	case perms.CanManageProducts:
		return dashboardScope{
			role:     models.RoleManager,
			key:      "manager:" + email,
			orders:   db.OrderFilter{ProductOwner: email},
			products: &db.ProductFilter{CreatedBy: email},
		}, nil
	case perms.CanPlaceOrder:
		return dashboardScope{
			role:   models.RoleBuyer,
			key:    "buyer:" + email,
			orders: db.OrderFilter{BuyerEmail: email},
		}, nil
	default:
		return dashboardScope{}, fmt.Errorf("%w: account has no dashboard access", lifecycle.ErrForbidden)
	}
}

// Dashboard aggregates the caller's role dashboard for window. Results are
// cached per scope for the configured TTL.
func (s *AnalyticsService) Dashboard(ctx context.Context, actorEmail string, window analytics.Window) (analytics.Dashboard, error) {
	span := sentry.StartSpan(
		ctx,
		"service.analytics.dashboard",
		sentry.WithOpName("service.analytics"),
		sentry.WithDescription("Dashboard"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)

	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		return analytics.Dashboard{}, err
	}
	scope, err := scopeFor(actor)
	if err != nil {
		return analytics.Dashboard{}, err
	}

	key := cache.AnalyticsKey(scope.key, string(window))
	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}

	in := analytics.Input{
		Window:   window,
		Now:      s.now(),
		Location: s.config.Location,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders, err := s.orders.List(gctx, scope.orders)
		if err != nil {
			return fmt.Errorf("failed to load orders: %w", err)
		}
		in.Orders = orders
		return nil
	})
	if scope.products != nil {
		g.Go(func() error {
			products, err := s.products.List(gctx, *scope.products)
			if err != nil {
				return fmt.Errorf("failed to load products: %w", err)
			}
			in.Products = products
			return nil
		})
	}
	if scope.includeUser {
		g.Go(func() error {
			users, err := s.users.List(gctx)
			if err != nil {
				return fmt.Errorf("failed to load users: %w", err)
			}
			in.Users = users
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return analytics.Dashboard{}, err
	}

	dashboard := analytics.ForRole(scope.role, in)
	s.store(ctx, key, dashboard)
	logger.Debug("dashboard computed", "scope", scope.key, "window", window, "orders", len(in.Orders))
	return dashboard, nil
}

func (s *AnalyticsService) cached(ctx context.Context, key string) (analytics.Dashboard, bool) {
	if s.cache == nil || s.config.CacheTTL <= 0 {
		return analytics.Dashboard{}, false
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.loggerFromContext(ctx).Warn("analytics cache read failed", "error", err, "key", key)
		}
		return analytics.Dashboard{}, false
	}

	var dashboard analytics.Dashboard
	if err := json.Unmarshal([]byte(raw), &dashboard); err != nil {
		s.loggerFromContext(ctx).Warn("discarding malformed cached dashboard", "error", err, "key", key)
		return analytics.Dashboard{}, false
	}
	return dashboard, true
}

func (s *AnalyticsService) store(ctx context.Context, key string, dashboard analytics.Dashboard) {
	if s.cache == nil || s.config.CacheTTL <= 0 {
		return
	}

	raw, err := json.Marshal(dashboard)
	if err != nil {
		s.loggerFromContext(ctx).Warn("failed to encode dashboard", "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.config.CacheTTL); err != nil {
		s.loggerFromContext(ctx).Warn("analytics cache write failed", "error", err, "key", key)
	}
}
