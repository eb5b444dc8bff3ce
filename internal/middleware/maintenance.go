package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unsentboard/unsent-backend/internal/common"
	"github.com/unsentboard/unsent-backend/internal/service"
)

// maintenancePollInterval bounds how often the flag is re-read from the
// store. Admin toggles take at most this long to reach public traffic.
const maintenancePollInterval = 15 * time.Second

// Maintenance gates public routes behind the site-wide maintenance flag.
// The flag is polled, not pushed; a short-lived cached copy keeps the hot
// path off the store.
func Maintenance(site *service.SiteService) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		active    bool
		message   string
		checkedAt time.Time
	)

	return func(c *gin.Context) {
		mu.Lock()
		stale := time.Since(checkedAt) >= maintenancePollInterval
		if stale {
			checkedAt = time.Now()
		}
		isActive, msg := active, message
		mu.Unlock()

		if stale {
			if flag, err := site.Maintenance(c.Request.Context()); err == nil {
				mu.Lock()
				active, message = flag.IsActive, flag.Message
				isActive, msg = active, message
				mu.Unlock()
			}
		}

		if isActive {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": &common.ErrorInfo{
					Code:    "SERVICE_UNAVAILABLE",
					Message: msg,
				},
			})
			return
		}

		c.Next()
	}
}
