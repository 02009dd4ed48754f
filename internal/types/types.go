// Package types provides common type definitions shared across the asset
// tokenization service.
package types

// UserTier represents the API service tier level
type UserTier string

const (
	// TierFree represents the free service tier with limited request rates
	TierFree UserTier = "free"
	// TierPaid represents the paid service tier with full request rates
	TierPaid UserTier = "paid"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
