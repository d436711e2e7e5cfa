package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterEntry is a token bucket and the last time it was used
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitStore manages rate limiters for different keys
type RateLimitStore struct {
	limiters map[string]*limiterEntry
	mutex    sync.Mutex
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

// NewRateLimitStore creates a new rate limit store
func NewRateLimitStore(limit rate.Limit, burst int, idleTTL time.Duration) *RateLimitStore {
	return &RateLimitStore{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// GetLimiter gets or creates a rate limiter for a key
func (rls *RateLimitStore) GetLimiter(key string) *rate.Limiter {
	rls.mutex.Lock()
	defer rls.mutex.Unlock()

	now := rls.now()
	entry, exists := rls.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rls.limit, rls.burst)}
		rls.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Cleanup drops limiters that have been idle longer than idleTTL
func (rls *RateLimitStore) Cleanup() int {
	rls.mutex.Lock()
	defer rls.mutex.Unlock()

	cutoff := rls.now().Add(-rls.idleTTL)
	removed := 0
	for key, entry := range rls.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rls.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (rls *RateLimitStore) Len() int {
	rls.mutex.Lock()
	defer rls.mutex.Unlock()
	return len(rls.limiters)
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int                       // Sustained request rate
	Burst             int                       // Bucket size, defaults to RequestsPerMinute
	KeyFunc           func(*gin.Context) string // Function to generate rate limit key
}

// DefaultKeyFunc generates a rate limit key based on IP address
func DefaultKeyFunc(c *gin.Context) string {
	return c.ClientIP()
}

// OwnerKeyFunc generates a rate limit key based on the session fingerprint
func OwnerKeyFunc(c *gin.Context) string {
	if owner, ok := GetOwner(c); ok {
		return fmt.Sprintf("owner:%s", owner)
	}
	return c.ClientIP()
}

// RateLimitMiddleware creates a rate limiting middleware
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = DefaultKeyFunc
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 60
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerMinute
	}

	store := NewRateLimitStore(rate.Limit(float64(config.RequestsPerMinute)/60), config.Burst, 10*time.Minute)
	var calls int
	var callsMu sync.Mutex

	return func(c *gin.Context) {
		callsMu.Lock()
		calls++
		if calls%1000 == 0 {
			store.Cleanup()
		}
		callsMu.Unlock()

		limiter := store.GetLimiter(config.KeyFunc(c))
		reservation := limiter.Reserve()

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerMinute))
		c.Header("X-RateLimit-Window", "60")

		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()

			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(delay.Seconds())+1))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Rate limit exceeded. Please try again later.",
				},
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Next()
	}
}

// APIRateLimitMiddleware applies general rate limiting for API endpoints
func APIRateLimitMiddleware() gin.HandlerFunc {
	return RateLimitMiddleware(RateLimitConfig{
		RequestsPerMinute: 300,
		Burst:             60,
		KeyFunc:           OwnerKeyFunc,
	})
}

// WithdrawalRateLimitMiddleware applies stricter limits to withdrawal submissions
func WithdrawalRateLimitMiddleware() gin.HandlerFunc {
	return RateLimitMiddleware(RateLimitConfig{
		RequestsPerMinute: 6,
		Burst:             3,
		KeyFunc: func(c *gin.Context) string {
			return "withdrawal:" + OwnerKeyFunc(c)
		},
	})
}
