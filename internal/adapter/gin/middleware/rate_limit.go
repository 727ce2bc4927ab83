package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-doc-service/internal/adapter/ratelimit"
	"user-doc-service/pkg/logger"
)

// RateLimit returns a Gin middleware that takes one token per request from the
// bucket of {method, route, client ip}. Requests without a token get 429.
func RateLimit(limiter *ratelimit.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := fmt.Sprintf("http:%s:%s:%s", c.Request.Method, route, c.ClientIP())

		cfg := limiter.Config()
		res := limiter.Allow(c.Request.Context(), key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
		if res.Remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		}

		if !res.Allowed {
			logger.WithContext(c.Request.Context(), log).Warn("rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
				zap.String("route", route),
			)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": fmt.Sprintf("Rate limit exceeded: %.2f requests/second (burst capacity: %d)", cfg.RequestsPerSecond, cfg.Burst),
			})
			return
		}

		c.Next()
	}
}
