package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/asset-tokenizer/internal/ledger"
	"github.com/asset-tokenizer/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// Common error codes
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeCapacityExceeded    = "CAPACITY_EXCEEDED"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// mapLedgerError maps ledger errors to HTTP status codes and error codes.
func mapLedgerError(err error) (int, string, string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, err.Error()
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden, ErrCodeForbidden, err.Error()
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusConflict, ErrCodeInsufficientBalance, err.Error()
	case errors.Is(err, ledger.ErrCapacityExceeded):
		return http.StatusConflict, ErrCodeCapacityExceeded, err.Error()
	case errors.Is(err, ledger.ErrInvalidState):
		return http.StatusConflict, ErrCodeInvalidState, err.Error()
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred"
	}
}

// respondLedgerError maps a ledger error and writes the error response.
func respondLedgerError(w http.ResponseWriter, err error) {
	status, code, message := mapLedgerError(err)
	respondError(w, status, code, message, nil)
}
