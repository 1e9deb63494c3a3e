package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizroom-backend/internal/response"
)

// RateLimiter is a token bucket per client. Clients are keyed by user ID
// when a JWT was validated earlier in the chain, otherwise by IP.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     int
	interval time.Duration
	now      func() time.Time
}

type bucket struct {
	tokens   int
	refilled time.Time
}

// NewRateLimiter allows rate requests per interval and client.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		now:      time.Now,
	}
}

// Middleware returns a Gin middleware that rejects clients over their budget.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(clientKey(c)) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.rate, refilled: now}
		rl.buckets[key] = b
	}

	if periods := int(now.Sub(b.refilled) / rl.interval); periods > 0 {
		b.tokens = min(rl.rate, b.tokens+periods*rl.rate)
		b.refilled = b.refilled.Add(time.Duration(periods) * rl.interval)
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Sweep drops clients idle for longer than maxIdle until stop is closed.
func (rl *RateLimiter) Sweep(every, maxIdle time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			rl.mu.Lock()
			now := rl.now()
			for k, b := range rl.buckets {
				if now.Sub(b.refilled) > maxIdle {
					delete(rl.buckets, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func clientKey(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return "user:" + strconv.Itoa(claims.UserID)
	}
	return "ip:" + c.ClientIP()
}
