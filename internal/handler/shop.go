package handler

import (
	"net/http"
)

type skinRequest struct {
	WalletAddress string `json:"walletAddress"`
	SkinID        string `json:"skinId"`
}

// handleSkins handles GET /skins.
func (a *API) handleSkins(w http.ResponseWriter, r *http.Request) {
	skins, err := a.skins.Catalog(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, skins)
}

// handleSkinBuy handles POST /skin/buy.
func (a *API) handleSkinBuy(w http.ResponseWriter, r *http.Request) {
	var req skinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := a.skins.Buy(r.Context(), req.WalletAddress, req.SkinID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "player": p})
}

// handleSkinEquip handles POST /skin/equip.
func (a *API) handleSkinEquip(w http.ResponseWriter, r *http.Request) {
	var req skinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := a.skins.Equip(r.Context(), req.WalletAddress, req.SkinID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "player": p})
}
