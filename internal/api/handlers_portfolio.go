package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// handleGetPortfolio handles GET /portfolio/{account} - pooled position summary
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	view, err := s.service.Portfolio(r.Context(), account)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleRedeemPortfolio handles POST /portfolio/redeem - pooled claim-and-burn
func (s *Server) handleRedeemPortfolio(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	view, err := s.service.RedeemPortfolio(r.Context(), account, req.Amount)
	if err != nil {
		log.Printf("RedeemPortfolio error: %v", err)
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleClaimFunds handles POST /tokens/{tokenID}/claim - asset token claim-and-burn
func (s *Server) handleClaimFunds(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireAccount(w, r)
	if !ok {
		return
	}

	tokenID := mux.Vars(r)["tokenID"]

	result, err := s.service.ClaimFunds(r.Context(), caller, tokenID)
	if err != nil {
		log.Printf("ClaimFunds error: %v", err)
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleTokenBalance handles GET /tokens/{tokenID}/balance/{account}
func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokenID := vars["tokenID"]
	account := vars["account"]

	balance, err := s.service.TokenBalance(r.Context(), tokenID, account)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokenId": tokenID,
		"account": account,
		"balance": balance,
	})
}
