package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/garmentrack/garmentrack/internal/config"
	"github.com/garmentrack/garmentrack/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(h),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// NewRouter builds the JSON API routes.
func NewRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.Use(h.MetricsContext)
	r.Use(h.SessionMiddleware)

	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet).Name("products.list")
	r.HandleFunc("/product/{id}", h.GetProduct).Methods(http.MethodGet).Name("products.get")

	public := r.NewRoute().Subrouter()
	public.Use(h.RequireSameOrigin)
	public.HandleFunc("/login-user", h.LoginUser).Methods(http.MethodPost).Name("auth.login")
	public.HandleFunc("/logout", h.Logout).Methods(http.MethodPost).Name("auth.logout")

	// Everything below needs a session.
	api := r.NewRoute().Subrouter()
	api.Use(h.RequireAuth)
	api.Use(h.RequireSameOrigin)

	api.HandleFunc("/me", h.Me).Methods(http.MethodGet).Name("me")
	api.HandleFunc("/me/permissions", h.MyPermissions).Methods(http.MethodGet).Name("me.permissions")

	api.HandleFunc("/products", h.CreateProduct).Methods(http.MethodPost).Name("products.create")
	api.HandleFunc("/product/{id}", h.UpdateProduct).Methods(http.MethodPatch).Name("products.update")
	api.HandleFunc("/product/{id}", h.DeleteProduct).Methods(http.MethodDelete).Name("products.delete")

	api.HandleFunc("/orders", h.ListOrders).Methods(http.MethodGet).Name("orders.list")
	api.HandleFunc("/orders", h.PlaceOrder).Methods(http.MethodPost).Name("orders.place")
	api.HandleFunc("/order/{id}", h.GetOrder).Methods(http.MethodGet).Name("orders.get")
	api.HandleFunc("/order/{id}", h.CancelOrder).Methods(http.MethodDelete).Name("orders.cancel")
	api.HandleFunc("/orders/{id}", h.UpdateOrder).Methods(http.MethodPatch).Name("orders.update")
	api.HandleFunc("/orders/{id}/tracking", h.OrderTracking).Methods(http.MethodGet).Name("orders.tracking")

	api.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet).Name("users.list")
	api.HandleFunc("/user", h.GetUser).Methods(http.MethodGet).Name("users.get")
	api.HandleFunc("/user", h.UpdateSelf).Methods(http.MethodPatch).Name("users.update_self")
	api.HandleFunc("/user/update/{id}", h.UpdateUserAccess).Methods(http.MethodPatch).Name("users.update_access")

	api.HandleFunc("/analytics", h.Analytics).Methods(http.MethodGet).Name("analytics")

	return r
}
