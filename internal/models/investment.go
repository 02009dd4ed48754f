package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentRecord is the persisted view of a single investment.
type InvestmentRecord struct {
	ID             int             `json:"id" db:"id"`
	Owner          string          `json:"owner" db:"owner"`
	TokenID        string          `json:"tokenId" db:"token_id"`
	AmountInvested decimal.Decimal `json:"amountInvested" db:"amount_invested"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

// InvestmentEvent is an append-only audit record of an investment operation.
type InvestmentEvent struct {
	EventType string          `json:"eventType"`
	Account   string          `json:"account"`
	TokenID   string          `json:"tokenId"`
	Amount    decimal.Decimal `json:"amount"`
	Units     decimal.Decimal `json:"units"`
	Timestamp time.Time       `json:"timestamp"`
}

// Event types recorded in the audit sink.
const (
	EventInvestVehicle   = "invest_vehicle"
	EventInvestPortfolio = "invest_portfolio"
	EventRedeemPortfolio = "redeem_portfolio"
	EventClaim           = "claim"
	EventFund            = "fund"
)
