package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"snakepill/internal/pkg/lock"
	"snakepill/internal/service"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps a service error to a status code. Unknown errors
// are logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, lock.ErrAlreadyRunning),
		errors.Is(err, lock.ErrLockTimeout):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidWallet),
		errors.Is(err, service.ErrSkinRequired),
		errors.Is(err, service.ErrSkinNotFound),
		errors.Is(err, service.ErrSkinAlreadyOwned),
		errors.Is(err, service.ErrNotEnoughPoints),
		errors.Is(err, service.ErrSkinNotOwned),
		errors.Is(err, service.ErrInvalidSession),
		errors.Is(err, service.ErrSessionRequired),
		errors.Is(err, service.ErrInvalidResult),
		errors.Is(err, service.ErrInvalidTaxAmount),
		errors.Is(err, service.ErrInvalidDonation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// queryLimit parses ?limit=, falling back to def for missing or invalid
// values and clamping to ceiling.
func queryLimit(r *http.Request, def, ceiling int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}
