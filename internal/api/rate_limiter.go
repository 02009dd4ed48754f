package api

import (
	"net/http"
	"sync"

	"github.com/asset-tokenizer/internal/types"
	"golang.org/x/time/rate"
)

// RateLimiter manages rate limiting for API requests
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	
	// Rate limits per tier (requests per second)
	freeTierLimit rate.Limit
	paidTierLimit rate.Limit
	
	// Burst size (number of requests that can be made in a burst)
	burstSize int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(freeTierRPS, paidTierRPS int) *RateLimiter {
	return &RateLimiter{
		limiters:      make(map[string]*rate.Limiter),
		freeTierLimit: rate.Limit(freeTierRPS),
		paidTierLimit: rate.Limit(paidTierRPS),
		burstSize:     10, // Allow bursts of 10 requests
	}
}

// getLimiter returns the rate limiter for a specific user and tier
func (rl *RateLimiter) getLimiter(accountID string, tier types.UserTier) *rate.Limiter {
	// Create a unique key for this user
	key := accountID

	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	// Determine rate limit based on tier
	var limit rate.Limit
	switch tier {
	case types.TierPaid:
		limit = rl.paidTierLimit
	case types.TierFree:
		limit = rl.freeTierLimit
	default:
		limit = rl.freeTierLimit
	}

	// Create new limiter
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check in case another goroutine created it
	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(limit, rl.burstSize)
	rl.limiters[key] = limiter

	return limiter
}

// RateLimitMiddleware creates a middleware that enforces rate limiting
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get account ID and tier from headers
			accountID := r.Header.Get("X-Account-ID")
			if accountID == "" {
				// No account ID - apply strictest rate limit
				accountID = r.RemoteAddr // Use IP address as fallback
			}

			tierStr := r.Header.Get("X-Account-Tier")
			tier := types.UserTier(tierStr)
			if tier == "" {
				tier = types.TierFree // Default to free tier
			}

			// Get limiter for this user
			limiter := rl.getLimiter(accountID, tier)

			// Check if request is allowed
			if !limiter.Allow() {
				respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded. Please try again later.", map[string]interface{}{
					"tier":  tier,
					"limit": limiter.Limit(),
				})
				return
			}

			// Request allowed - proceed
			next.ServeHTTP(w, r)
		})
	}
}
