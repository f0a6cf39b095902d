package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type window struct {
	start time.Time
	count int
}

// RateLimiter is a fixed-window request counter keyed by client
type RateLimiter struct {
	limit   int
	window  time.Duration
	clients map[string]*window
	now     func() time.Time
	mu      sync.Mutex
}

func NewRateLimiter(limit int, w time.Duration) *RateLimiter {
	if w <= 0 {
		w = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  w,
		clients: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow counts a request for key and reports whether it fits the window.
// A non-positive limit disables limiting.
func (rl *RateLimiter) Allow(key string) bool {
	_, ok := rl.take(key)
	return ok
}

func (rl *RateLimiter) take(key string) (int, bool) {
	if rl.limit <= 0 {
		return 0, true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, exists := rl.clients[key]
	if !exists || now.Sub(w.start) >= rl.window {
		w = &window{start: now}
		rl.clients[key] = w
		if len(rl.clients) > 10000 {
			rl.pruneLocked(now)
		}
	}

	if w.count >= rl.limit {
		return 0, false
	}
	w.count++
	return rl.limit - w.count, true
}

func (rl *RateLimiter) pruneLocked(now time.Time) {
	for key, w := range rl.clients {
		if now.Sub(w.start) >= rl.window {
			delete(rl.clients, key)
		}
	}
}

func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		remaining, ok := limiter.take(c.ClientIP())
		if limiter.limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": limiter.window.Seconds(),
			})
			return
		}

		c.Next()
	}
}
