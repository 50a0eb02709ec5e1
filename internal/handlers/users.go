package handlers

import (
	"net/http"
	"strings"

	"github.com/garmentrack/garmentrack/internal/lifecycle"
	"github.com/garmentrack/garmentrack/internal/models"
	"github.com/garmentrack/garmentrack/internal/services"
)

// ListUsers is the admin directory.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	users, err := h.userService.List(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, r, http.StatusOK, users)
}

// GetUser looks an account up by email. Without ?email= it returns the caller.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	target := strings.TrimSpace(r.URL.Query().Get("email"))
	if target == "" {
		target = email
	}
	user, err := h.userService.GetByEmail(r.Context(), email, target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (h *Handlers) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var input services.ProfileInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userService.UpdateSelf(r.Context(), email, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

// UpdateUserAccess applies an admin role or status change.
func (h *Handlers) UpdateUserAccess(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var input services.AccessInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	if input.Role == nil && input.Status == nil {
		writeError(w, r, &lifecycle.ValidationError{Field: "status", Message: "Nothing to update"})
		return
	}

	user, err := h.userService.AdminUpdate(r.Context(), email, id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}
