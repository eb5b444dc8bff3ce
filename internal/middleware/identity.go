package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unsentboard/unsent-backend/internal/domain"
)

// ClientIP extracts the caller IP, best-effort:
// x-forwarded-for (first hop) -> x-real-ip -> cf-connecting-ip -> socket peer
func ClientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := c.GetHeader("CF-Connecting-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

// ClientIdentity assembles the (ip, uuid) pair for admission control.
// bodyUUID, when present, wins over the user_uuid cookie. Either component
// may be absent.
func ClientIdentity(c *gin.Context, bodyUUID string) domain.Identity {
	id := domain.Identity{IP: ClientIP(c), UUID: bodyUUID}
	if id.UUID == "" {
		if cookie, err := c.Cookie("user_uuid"); err == nil {
			id.UUID = cookie
		}
	}
	return id
}
