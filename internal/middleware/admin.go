package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unsentboard/unsent-backend/internal/common"
	"github.com/unsentboard/unsent-backend/internal/service"
)

// SessionCookieName is the admin session cookie
const SessionCookieName = "admin_session"

// StepUpHeader carries the short-lived confirmation token for destructive
// admin actions
const StepUpHeader = "X-Confirm-Token"

// RequireAdmin gates a route group on a live admin session
func RequireAdmin(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err != nil || !auth.Check(c.Request.Context(), token) {
			common.ErrorResponse(c, http.StatusUnauthorized, "admin authentication required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStepUp additionally demands a valid confirmation token. Applied to
// destructive or state-changing admin actions on top of RequireAdmin.
func RequireStepUp(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.VerifyStepUp(c.GetHeader(StepUpHeader)); err != nil {
			common.ErrorResponse(c, http.StatusForbidden, "action confirmation required", err)
			c.Abort()
			return
		}
		c.Next()
	}
}
