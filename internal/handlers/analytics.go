package handlers

import (
	"net/http"

	"github.com/garmentrack/garmentrack/internal/analytics"
	"github.com/garmentrack/garmentrack/internal/lifecycle"
)

// Analytics returns the caller's role dashboard for ?window= (Today, 7 Days, 30 Days).
func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	window, err := analytics.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		writeError(w, r, &lifecycle.ValidationError{Field: "window", Message: "window must be Today, 7 Days or 30 Days"})
		return
	}

	dashboard, err := h.analyticsService.Dashboard(r.Context(), email, window)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dashboard)
}
