package handlers

import (
	"context"
	"net/http"

	"github.com/garmentrack/garmentrack/internal/logging"
	"github.com/garmentrack/garmentrack/internal/services"
	"github.com/garmentrack/garmentrack/internal/session"
)

func (h *Handlers) sessionFromRequest(ctx context.Context, r *http.Request) *session.Data {
	if ctx == nil {
		ctx = context.Background()
	}
	if sess := session.FromContext(ctx); sess != nil {
		return sess
	}
	if h == nil || h.sessionManager == nil || r == nil {
		return nil
	}
	sess, err := h.sessionManager.GetSession(ctx, r)
	if err != nil {
		return nil
	}
	return sess
}

// actorEmail resolves the signed-in caller. Role and status are not kept in
// the session; services read them fresh for every request.
func (h *Handlers) actorEmail(r *http.Request) (string, error) {
	sess := h.sessionFromRequest(r.Context(), r)
	if sess == nil || sess.Email == "" {
		return "", services.ErrUnauthenticated
	}
	logging.Annotate(r.Context(), "actor_email", sess.Email)
	return sess.Email, nil
}
