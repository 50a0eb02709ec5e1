package handlers

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/garmentrack/garmentrack/internal/logging"
)

// resourceKeys names the {id} route variable per route family.
var resourceKeys = map[string]string{
	"orders":   "order_id",
	"products": "product_id",
	"users":    "target_user_id",
}

type responseTally struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *responseTally) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseTally) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *responseTally) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// RequestLogger writes one access line per response. The line carries the
// order, product or user the route addresses, and the actor email and role
// once a handler has resolved them.
func (h *Handlers) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := requestIDFromRequest(r)
		w.Header().Set("X-Request-ID", requestID)

		route := routeLabel(r)
		logger := h.logger.With(requestAttrs(r, requestID, route)...)

		ctx, fields := logging.WithFields(logging.WithLogger(r.Context(), logger))
		tally := &responseTally{ResponseWriter: w}
		next.ServeHTTP(tally, r.WithContext(ctx))

		status := tally.code()
		elapsed := time.Since(start)
		recordRequestMetrics(r.WithContext(ctx), route, status, elapsed)

		args := append([]any{
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"bytes", tally.bytes,
		}, fields.Args()...)
		logger.Log(ctx, accessLevel(r, status), "request completed", args...)
	})
}

func requestAttrs(r *http.Request, requestID, route string) []any {
	attrs := []any{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_ip", clientIP(r),
	}
	if route != "" {
		attrs = append(attrs, "route", route)
	}
	if key, id := routeResource(r, route); key != "" {
		attrs = append(attrs, key, id)
	}
	if userAgent := strings.TrimSpace(r.UserAgent()); userAgent != "" {
		attrs = append(attrs, "user_agent", userAgent)
	}
	return attrs
}

// routeResource maps the {id} variable of a named route such as
// "orders.update" to a field like order_id.
func routeResource(r *http.Request, route string) (string, string) {
	id := mux.Vars(r)["id"]
	if id == "" {
		return "", ""
	}
	family, _, _ := strings.Cut(route, ".")
	if key, ok := resourceKeys[family]; ok {
		return key, id
	}
	return "resource_id", id
}

func accessLevel(r *http.Request, status int) slog.Level {
	switch {
	case r.URL.Path == "/health":
		return slog.LevelDebug
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func recordRequestMetrics(r *http.Request, route string, status int, elapsed time.Duration) {
	ctx := r.Context()
	if route == "" {
		route = "unknown"
	}
	attrs := []attribute.Builder{
		attribute.String("http.method", r.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	}
	meter := sentry.NewMeter(ctx).WithCtx(ctx)
	meter.Count("http.server.requests", 1, sentry.WithAttributes(attrs...))
	meter.Distribution("http.server.duration", float64(elapsed.Milliseconds()),
		sentry.WithUnit(sentry.UnitMillisecond),
		sentry.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("http.status_class", fmt.Sprintf("%dxx", status/100)),
		),
	)
	switch {
	case status >= http.StatusInternalServerError:
		meter.Count("http.server.errors", 1, sentry.WithAttributes(attrs...))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		meter.Count("http.server.denied", 1, sentry.WithAttributes(attrs...))
	}
}

func requestIDFromRequest(r *http.Request) string {
	if r == nil {
		return uuid.NewString()
	}
	if requestID := strings.TrimSpace(r.Header.Get("X-Request-ID")); requestID != "" {
		return requestID
	}
	return uuid.NewString()
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func routeLabel(r *http.Request) string {
	if r == nil {
		return ""
	}
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	if name := route.GetName(); name != "" {
		return name
	}
	if template, err := route.GetPathTemplate(); err == nil && template != "" {
		return template
	}
	return ""
}
