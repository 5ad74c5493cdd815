package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type distributeRequest struct {
	TotalTax decimal.Decimal `json:"totalTax"`
}

type donationRequest struct {
	WalletAddress string          `json:"walletAddress"`
	AmountSOL     decimal.Decimal `json:"amountSol"`
	TxSignature   string          `json:"txSignature"`
	Message       *string         `json:"message"`
}

// handleDistribute handles POST /admin/distribute. A distribution that
// skipped sending still answers 200; the body carries success=false and the
// reason. The run outlives a disconnected client.
func (a *API) handleDistribute(w http.ResponseWriter, r *http.Request) {
	var req distributeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	log.Info().
		Str("total_tax_sol", req.TotalTax.String()).
		Str("remote", r.RemoteAddr).
		Msg("Distribution requested")

	res, err := a.distribution.Distribute(context.WithoutCancel(r.Context()), req.TotalTax)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDistributions handles GET /distributions.
func (a *API) handleDistributions(w http.ResponseWriter, r *http.Request) {
	logs, err := a.distribution.History(r.Context(), queryLimit(r, 20, 100))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleRecordDonation handles POST /admin/donates.
func (a *API) handleRecordDonation(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	recorded, err := a.status.RecordDonation(r.Context(), req.WalletAddress, req.AmountSOL, req.TxSignature, req.Message)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if recorded {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]bool{"recorded": recorded})
}
