package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to the identity whose bucket it drains.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys authenticated callers by user id ("user:42") and
// everyone else by client address ("ip:203.0.113.7"). Authenticate has to
// run first for the user form to apply.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id := UserID(c); id != 0 {
			return "user:" + strconv.FormatUint(uint64(id), 10)
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim  *rate.Limiter
	used time.Time
}

// RateLimiter keeps one token bucket per identity in process memory.
// Buckets untouched for idleTTL are swept at most once per sweepEvery.
// Safe for concurrent use.
type RateLimiter struct {
	limit rate.Limit
	burst int
	key   keyFunc

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time

	idleTTL    time.Duration
	sweepEvery time.Duration
	now        func() time.Time
}

// NewRateLimiter refills rps tokens per second into buckets of size burst.
// A burst below 1 is raised to 1.
func NewRateLimiter(rps float64, burst int, key keyFunc) *RateLimiter {
	return &RateLimiter{
		limit:      rate.Limit(rps),
		burst:      max(burst, 1),
		key:        key,
		buckets:    make(map[string]*bucket),
		idleTTL:    10 * time.Minute,
		sweepEvery: time.Minute,
		now:        time.Now,
	}
}

// limiterFor returns the bucket of key, creating it on first use. Idle
// buckets are dropped before the lookup so a stale entry starts afresh.
func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.used) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.used = now
	return b.lim
}

// retryAfter is the whole number of seconds until one token is back.
func (rl *RateLimiter) retryAfter() string {
	if rl.limit <= 0 {
		return "60"
	}
	secs := math.Ceil(1 / float64(rl.limit))
	return strconv.Itoa(max(int(secs), 1))
}

// Handler rejects requests whose bucket is empty with 429, a Retry-After
// header and the rate_limited error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limiterFor(rl.key(c)).Allow() {
			c.Next()
			return
		}
		LoggerFrom(c).Debug().Str("path", c.Request.URL.Path).Msg("rate limited")
		c.Header("Retry-After", rl.retryAfter())
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
