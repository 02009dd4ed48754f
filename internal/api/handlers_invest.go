package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// handleInvestVehicle handles POST /invest/vehicle - direct investment into one token
func (s *Server) handleInvestVehicle(w http.ResponseWriter, r *http.Request) {
	investor, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req struct {
		TokenID string          `json:"tokenId"`
		Amount  decimal.Decimal `json:"amount"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.TokenID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Token id required", nil)
		return
	}

	investments, err := s.service.InvestVehicle(r.Context(), investor, req.Amount, req.TokenID)
	if err != nil {
		log.Printf("InvestVehicle error: %v", err)
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"investments": investments,
	})
}

// handleInvestPortfolio handles POST /invest/portfolio - waterfall investment
func (s *Server) handleInvestPortfolio(w http.ResponseWriter, r *http.Request) {
	investor, ok := requireAccount(w, r)
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

	investments, err := s.service.InvestPortfolio(r.Context(), investor, req.Amount)
	if err != nil {
		log.Printf("InvestPortfolio error: %v", err)
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"investments": investments,
	})
}

// handleGetInvestment handles GET /investments/{id}
func (s *Server) handleGetInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid investment id", nil)
		return
	}

	investment, err := s.service.GetInvestment(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, investment)
}
