package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"snakepill/internal/service"
)

type gameStartRequest struct {
	WalletAddress string `json:"walletAddress"`
}

type gameEndRequest struct {
	SessionID       string `json:"sessionId"`
	GameSessionID   string `json:"gameSessionId"`
	Score           int64  `json:"score"`
	PlaytimeSeconds int64  `json:"playtimeSeconds"`
	PillsEaten      int64  `json:"pillsEaten"`
	Reason          string `json:"reason"`
}

type heartbeatRequest struct {
	SessionID     string `json:"sessionId"`
	WalletAddress string `json:"walletAddress"`
	IsPlaying     bool   `json:"isPlaying"`
}

// handleGameStart handles POST /game/start.
func (a *API) handleGameStart(w http.ResponseWriter, r *http.Request) {
	var req gameStartRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	res, err := a.game.Start(r.Context(), req.WalletAddress)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGameEnd handles POST /game/end.
func (a *API) handleGameEnd(w http.ResponseWriter, r *http.Request) {
	var req gameEndRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := uuid.Parse(req.GameSessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, service.ErrInvalidSession.Error())
		return
	}

	res, err := a.game.End(r.Context(), service.EndRequest{
		SessionID:       req.SessionID,
		GameSessionID:   id,
		Score:           req.Score,
		PlaytimeSeconds: req.PlaytimeSeconds,
		PillsEaten:      req.PillsEaten,
		Reason:          req.Reason,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleHeartbeat handles POST /game/heartbeat.
func (a *API) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.game.Heartbeat(r.Context(), req.SessionID, req.WalletAddress, req.IsPlaying); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleOnline handles GET /online.
func (a *API) handleOnline(w http.ResponseWriter, r *http.Request) {
	n, err := a.game.OnlineCount(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// handleLeaderboard handles GET /leaderboard.
func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := a.game.Leaderboard(r.Context(), queryLimit(r, 100, 500))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handlePlayerStats handles GET /leaderboard/{wallet}.
func (a *API) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	p, err := a.game.PlayerStats(r.Context(), chi.URLParam(r, "wallet"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
