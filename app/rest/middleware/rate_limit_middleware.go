package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter applies per-IP token buckets. Login endpoints get a much
// tighter budget than the rest of the API since every request there costs a
// provider round trip and counts against the provider's own throttling.
type RateLimiter struct {
	visitors     map[string]*visitor
	mutex        sync.Mutex
	defaultLimit rate.Limit
	defaultBurst int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter with the given default budget for
// non-login endpoints.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors:     make(map[string]*visitor),
		defaultLimit: rate.Limit(rps),
		defaultBurst: burst,
	}

	go rl.cleanupVisitors()
	return rl
}

// RateLimit returns the echo middleware.
func (rl *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			path := c.Request().URL.Path

			var limit rate.Limit
			var burst int

			switch {
			case strings.Contains(path, "/auth/login"):
				limit = rate.Every(10 * time.Second)
				burst = 6
			case strings.Contains(path, "/auth/revoke"):
				limit = rate.Every(time.Second)
				burst = 5
			default:
				limit = rl.defaultLimit
				burst = rl.defaultBurst
			}

			// Key per path class so a burst of logins does not starve the
			// same caller's read endpoints.
			key := ip
			if strings.Contains(path, "/auth/login") {
				key = ip + ":login"
			}

			if !rl.allow(key, limit, burst) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":       "rate limit exceeded",
					"code":        "RATE_LIMITED",
					"retry_after": 10,
				})
			}

			return next(c)
		}
	}
}

func (rl *RateLimiter) allow(key string, limit rate.Limit, burst int) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(limit, burst)}
		rl.visitors[key] = v
	}

	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

func (rl *RateLimiter) cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		rl.mutex.Lock()
		for key, v := range rl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, key)
			}
		}
		rl.mutex.Unlock()
	}
}
