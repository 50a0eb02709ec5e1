package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/garmentrack/garmentrack/internal/access"
	"github.com/garmentrack/garmentrack/internal/models"
	"github.com/garmentrack/garmentrack/internal/observability"
	"github.com/garmentrack/garmentrack/internal/services"
	"github.com/garmentrack/garmentrack/internal/session"
)

type loginRequest struct {
	Token string `json:"token"`
}

type accountResponse struct {
	User        *models.User       `json:"user"`
	Permissions access.Permissions `json:"permissions"`
}

// LoginUser exchanges a verified identity assertion for a session. The token
// comes from the JSON body or an Authorization bearer header.
func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		raw = req.Token
	}

	claims, err := h.verifier.Verify(raw)
	if err != nil {
		meter.Count("auth.login.rejected", 1, sentry.WithAttributes(attribute.String("reason", "invalid_token")))
		logger.Warn("identity token rejected", "error", err)
		writeError(w, r, fmt.Errorf("%w: %w", services.ErrUnauthenticated, err))
		return
	}

	user, err := h.userService.Login(ctx, services.LoginInput{
		Email:    claims.Email,
		Name:     claims.Name,
		PhotoURL: claims.Picture,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.sessionManager.CreateSession(ctx, w, &session.Data{UserID: user.ID, Email: user.Email}); err != nil {
		writeError(w, r, fmt.Errorf("failed to create session: %w", err))
		return
	}

	writeJSON(w, r, http.StatusOK, accountResponse{User: user, Permissions: access.ForUser(user)})
}

// Logout always succeeds, with or without a session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessionManager.DestroySession(r.Context(), w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.userService.Me(r.Context(), email)
	if err != nil {
		h.dropStaleSession(w, r, err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, accountResponse{User: user, Permissions: access.ForUser(user)})
}

func (h *Handlers) MyPermissions(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	perms, err := h.userService.Permissions(r.Context(), email)
	if err != nil {
		h.dropStaleSession(w, r, err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, perms)
}

// dropStaleSession ends a session whose account no longer exists.
func (h *Handlers) dropStaleSession(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrUnauthenticated) {
		h.sessionManager.DestroySession(r.Context(), w, r)
	}
}
