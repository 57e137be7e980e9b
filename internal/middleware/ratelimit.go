package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-tracker-api/internal/service"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
	"github.com/noah-isme/academic-tracker-api/pkg/response"
)

// TokenBucket is an in-memory per-client rate limiter refilled every minute.
type TokenBucket struct {
	capacity  float64
	perMinute float64
	metrics   *service.MetricsService
	now       func() time.Time

	mu        sync.Mutex
	state     map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket allows perMinute requests per client with bursts up to burst.
func NewTokenBucket(perMinute, burst int, metrics *service.MetricsService) *TokenBucket {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &TokenBucket{
		capacity:  float64(burst),
		perMinute: float64(perMinute),
		metrics:   metrics,
		now:       time.Now,
		state:     make(map[string]*bucket),
	}
}

// Middleware rejects clients that exhausted their bucket with 429.
func (l *TokenBucket) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			key = "unknown"
		}
		if !l.Allow(key) {
			l.metrics.RecordRateLimited()
			c.Header("Retry-After", "60")
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Allow takes one token from key's bucket.
func (l *TokenBucket) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	b, ok := l.state[key]
	if !ok {
		l.state[key] = &bucket{tokens: l.capacity - 1, last: now}
		return true
	}
	b.tokens += now.Sub(b.last).Minutes() * l.perMinute
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// refillWindow is how long an empty bucket takes to fill up again.
func (l *TokenBucket) refillWindow() time.Duration {
	return time.Duration(l.capacity / l.perMinute * float64(time.Minute))
}

// sweep drops buckets idle for a full refill window; such a bucket is full and
// indistinguishable from a new one. Runs at most once per window.
func (l *TokenBucket) sweep(now time.Time) {
	window := l.refillWindow()
	if now.Sub(l.lastSweep) < window {
		return
	}
	l.lastSweep = now
	for key, b := range l.state {
		if now.Sub(b.last) >= window {
			delete(l.state, key)
		}
	}
}
