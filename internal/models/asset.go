// Package models defines the persistence records for assets and investments.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetRecord is the persisted view of a registered asset.
type AssetRecord struct {
	ID                int             `json:"id" db:"id"`
	Owner             string          `json:"owner" db:"owner"`
	Name              string          `json:"name" db:"name"`
	ValueUSD          decimal.Decimal `json:"valueUsd" db:"value_usd"`
	Cap               decimal.Decimal `json:"cap" db:"cap"`
	AnnualizedROI     decimal.Decimal `json:"annualizedRoi" db:"annualized_roi"`
	ProjectedValueUSD decimal.Decimal `json:"projectedValueUsd" db:"projected_value_usd"`
	TimeframeMonths   int             `json:"timeframeMonths" db:"timeframe_months"`
	PricePerUnit      decimal.Decimal `json:"pricePerUnit" db:"price_per_unit"`
	TokenID           string          `json:"tokenId" db:"token_id"`
	Funded            bool            `json:"funded" db:"funded"`
	Filled            bool            `json:"filled" db:"filled"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}
