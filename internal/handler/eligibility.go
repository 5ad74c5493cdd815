package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// handleEligible handles GET /eligible.
func (a *API) handleEligible(w http.ResponseWriter, r *http.Request) {
	players, err := a.eligibility.EligiblePlayers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// handleEligibility handles GET /eligible/{wallet}.
func (a *API) handleEligibility(w http.ResponseWriter, r *http.Request) {
	report, err := a.eligibility.Lookup(r.Context(), chi.URLParam(r, "wallet"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleCronEligibility handles GET /cron/eligibility: drops stale online
// sessions, then runs a reconciliation and waits for it. The run is detached
// from the request so a dropped connection does not abort it.
func (a *API) handleCronEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	if _, err := a.game.CleanupOffline(ctx); err != nil {
		log.Warn().Err(err).Msg("Online cleanup failed")
	}

	res, err := a.eligibility.CheckAll(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"checked":    res.Checked,
		"eligible":   res.Eligible,
		"removed":    res.Removed,
		"failed":     res.Failed,
		"durationMs": res.Duration.Milliseconds(),
		"timestamp":  a.clock.Now().UTC(),
	})
}
