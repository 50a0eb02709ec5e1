package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/garmentrack/garmentrack/internal/config"
	"github.com/garmentrack/garmentrack/internal/identity"
	"github.com/garmentrack/garmentrack/internal/logging"
	"github.com/garmentrack/garmentrack/internal/services"
	"github.com/garmentrack/garmentrack/internal/session"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers serves the JSON API for buyers, managers and admins.
type Handlers struct {
	config           *config.Config
	store            Pinger
	sessionManager   *session.Manager
	verifier         *identity.Verifier
	orderService     *services.OrderService
	productService   *services.ProductService
	userService      *services.UserService
	analyticsService *services.AnalyticsService
	logger           *slog.Logger
}

type Dependencies struct {
	Config           *config.Config
	Store            Pinger
	SessionManager   *session.Manager
	Verifier         *identity.Verifier
	OrderService     *services.OrderService
	ProductService   *services.ProductService
	UserService      *services.UserService
	AnalyticsService *services.AnalyticsService
	Logger           *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.SessionManager == nil {
		return nil, fmt.Errorf("handlers dependencies: sessionManager is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("handlers dependencies: verifier is required")
	}
	if deps.OrderService == nil {
		return nil, fmt.Errorf("handlers dependencies: orderService is required")
	}
	if deps.ProductService == nil {
		return nil, fmt.Errorf("handlers dependencies: productService is required")
	}
	if deps.UserService == nil {
		return nil, fmt.Errorf("handlers dependencies: userService is required")
	}
	if deps.AnalyticsService == nil {
		return nil, fmt.Errorf("handlers dependencies: analyticsService is required")
	}

	return &Handlers{
		config:           deps.Config,
		store:            deps.Store,
		sessionManager:   deps.SessionManager,
		verifier:         deps.Verifier,
		orderService:     deps.OrderService,
		productService:   deps.ProductService,
		userService:      deps.UserService,
		analyticsService: deps.AnalyticsService,
		logger:           logger.With("component", "handlers"),
	}, nil
}

// Health pings the store. The in-memory store has nothing to ping.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	storeName := "memory"
	if h.store != nil {
		storeName = "postgres"
		if err := h.store.Ping(ctx); err != nil {
			logger.Error("database health check failed", "error", err)
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"store":  storeName,
	}); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}

// SessionMiddleware adds session data to the request context
func (h *Handlers) SessionMiddleware(next http.Handler) http.Handler {
	return h.sessionManager.Middleware(next)
}

// RequireAuth answers 401 for requests without a live session.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return h.sessionManager.RequireAuth(http.HandlerFunc(h.unauthorized))(next)
}

func (h *Handlers) unauthorized(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, services.ErrUnauthenticated)
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func SecureCookiesFromConfig(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			return strings.EqualFold(parsed.Scheme, "https")
		}
	}

	return cfg.Port == "443" || cfg.Port == "8443"
}

func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "Not found"})
}

func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
}
