package handler

import (
	"net/http"
)

// handleHealth handles GET /health. An unreachable database answers 503.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if a.db != nil {
		if err := a.db.HealthCheck(r.Context()); err != nil {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": a.clock.Now().UTC(),
	})
}

// handleStatus handles GET /status.
func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := a.status.Status(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleDonations handles GET /donates.
func (a *API) handleDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := a.status.Donations(r.Context(), queryLimit(r, 50, 200))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}
