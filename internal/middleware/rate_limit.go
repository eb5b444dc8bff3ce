package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unsentboard/unsent-backend/internal/ratelimit"
)

// RateLimit limits requests per client IP, namespaced per endpoint so limits
// on different operations do not interfere.
func RateLimit(limiter *ratelimit.Limiter, namespace string, cfg ratelimit.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := fmt.Sprintf("%s:ip:%s", namespace, ClientIP(c))
		result := limiter.Check(identifier, cfg)

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   gin.H{"code": "RATE_LIMITED", "message": "Too many requests. Please slow down."},
			})
			return
		}

		c.Next()
	}
}
