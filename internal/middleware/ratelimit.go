// File: internal/middleware/ratelimit.go
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"user_admin_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const limiterCleanupInterval = 5 * time.Minute

type operatorLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per operator.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[string]*operatorLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows perMinute requests per operator with the given burst.
// A background goroutine evicts idle operators until Stop is called.
func NewRateLimiter(perMinute, burst int, logger *zap.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		logger:   logger.Named("RateLimiter"),
		limiters: make(map[string]*operatorLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects requests once the operator's bucket is empty. It must run after AuthMiddleware.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := common.GetFirebaseUIDFromContext(c)
		if uid == "" {
			common.RespondWithError(c, common.ErrUnauthorized)
			return
		}

		if !rl.get(uid).Allow() {
			rl.logger.Warn("Rate limit exceeded", zap.String("uid", uid), zap.String("path", c.FullPath()))
			c.Header("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			common.RespondWithError(c, common.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

// LimiterCount reports how many operators currently hold a bucket.
func (rl *RateLimiter) LimiterCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) get(uid string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if ol, ok := rl.limiters[uid]; ok {
		ol.lastAccess = time.Now()
		return ol.limiter
	}
	ol := &operatorLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst), lastAccess: time.Now()}
	rl.limiters[uid] = ol
	return ol.limiter
}

func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.limit <= 0 {
		return 60
	}
	secs := int(math.Ceil(1.0 / float64(rl.limit)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops buckets idle for more than twice the cleanup interval.
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := limiterCleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for uid, ol := range rl.limiters {
		if now.Sub(ol.lastAccess) > ttl {
			delete(rl.limiters, uid)
		}
	}
}
