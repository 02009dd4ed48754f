package ledger

import "errors"

// Sentinel errors shared by every ledger operation. Callers match them with
// errors.Is; the API layer maps them to HTTP status codes.
var (
	// ErrUnauthorized indicates the caller does not hold the role required
	// for a restricted operation (asset owner, registry owner, allocator).
	ErrUnauthorized = errors.New("caller is not authorized")

	// ErrInsufficientBalance indicates a balance or allowance below the
	// amount required by the operation.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCapacityExceeded indicates a mint that would push an asset token's
	// supply above its cap.
	ErrCapacityExceeded = errors.New("asset capacity exceeded")

	// ErrInvalidState indicates an operation against an asset or token in
	// the wrong lifecycle state.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrNotFound indicates a lookup by id or token handle with no
	// matching record.
	ErrNotFound = errors.New("record not found")
)
