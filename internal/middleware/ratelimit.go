package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"webapi-template/internal/shared/apperr"
)

// RateLimiter restricts request frequency per client IP.
type RateLimiter struct {
	mu   sync.Mutex
	last map[string]time.Time
	rate time.Duration
}

// NewRateLimiter creates a limiter allowing one request per rate interval
// per client.
func NewRateLimiter(rate time.Duration) *RateLimiter {
	return &RateLimiter{last: make(map[string]time.Time), rate: rate}
}

// Allow returns false when the client hits the limit.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if t, ok := r.last[key]; ok && now.Sub(t) < r.rate {
		return false
	}
	r.last[key] = now
	return true
}

// Prune drops entries idle for longer than maxIdle and returns how many
// were removed. The janitor calls it periodically so the map cannot grow
// without bound.
func (r *RateLimiter) Prune(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for k, t := range r.last {
		if t.Before(cutoff) {
			delete(r.last, k)
			removed++
		}
	}
	return removed
}

// Middleware rejects over-limit requests with a BAD_REQUEST-family typed
// error so the translator renders the standard envelope.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			_ = c.Error(apperr.BadRequest("Too many requests, slow down"))
			c.Abort()
			return
		}
		c.Next()
	}
}
