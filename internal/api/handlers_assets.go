package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/asset-tokenizer/internal/service"
)

// requireAccount extracts the caller account from the X-Account-ID header.
func requireAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	account := r.Header.Get("X-Account-ID")
	if account == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Account ID required", nil)
		return "", false
	}
	return account, true
}

// handleAddAsset handles POST /assets - register an asset and create its token
func (s *Server) handleAddAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req service.AddAssetInput
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	view, err := s.service.AddAsset(r.Context(), caller, req)
	if err != nil {
		log.Printf("AddAsset error: %v", err)
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

// handleListAssets handles GET /assets - list assets plus fillable index stats
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.ListAssets(r.Context())
	if err != nil {
		log.Printf("ListAssets error: %v", err)
		respondLedgerError(w, err)
		return
	}

	stats, err := s.service.FillableStats(r.Context())
	if err != nil {
		log.Printf("FillableStats error: %v", err)
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"assets":   views,
		"fillable": stats,
	})
}

// handleGetAsset handles GET /assets/{id} - asset lookup
func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid asset id", nil)
		return
	}

	view, err := s.service.GetAsset(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleEditAsset handles PUT /assets/{tokenID} - edit economics before any sale
func (s *Server) handleEditAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireAccount(w, r)
	if !ok {
		return
	}

	tokenID := mux.Vars(r)["tokenID"]

	var req service.EditAssetInput
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	view, err := s.service.EditAsset(r.Context(), caller, tokenID, req)
	if err != nil {
		log.Printf("EditAsset error: %v", err)
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleFundAsset handles POST /assets/{id}/fund - owner posts the payout reserve
func (s *Server) handleFundAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireAccount(w, r)
	if !ok {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid asset id", nil)
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	view, err := s.service.FundAsset(r.Context(), caller, id, req.Amount)
	if err != nil {
		log.Printf("FundAsset error: %v", err)
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}
