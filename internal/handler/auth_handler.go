package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unsentboard/unsent-backend/internal/common"
	"github.com/unsentboard/unsent-backend/internal/middleware"
	"github.com/unsentboard/unsent-backend/internal/service"
)

// AuthHandler serves admin login, session check, logout and step-up
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles POST /api/admin/auth
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			common.ErrorResponse(c, http.StatusUnauthorized, "invalid credentials", err)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "login failed", err)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookieName, token,
		int(h.auth.SessionMaxAge().Seconds()), "/", "", true, true)
	common.SuccessResponse(c, http.StatusOK, "logged in", nil)
}

// Check handles GET /api/admin/auth
func (h *AuthHandler) Check(c *gin.Context) {
	token, _ := c.Cookie(middleware.SessionCookieName)
	c.JSON(http.StatusOK, gin.H{
		"authenticated": h.auth.Check(c.Request.Context(), token),
	})
}

// Logout handles DELETE /api/admin/auth
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(middleware.SessionCookieName); err == nil {
		h.auth.Logout(c.Request.Context(), token)
	}
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", true, true)
	common.SuccessResponse(c, http.StatusOK, "logged out", nil)
}

// StepUp handles POST /api/admin/auth/step-up. Re-verifies the password and
// returns a short-lived confirmation token for destructive actions.
func (h *AuthHandler) StepUp(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	sessionToken, _ := c.Cookie(middleware.SessionCookieName)
	token, err := h.auth.StepUp(c.Request.Context(), sessionToken, req.Password)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "confirmation failed", err)
		return
	}
	common.SuccessResponse(c, http.StatusOK, "confirmed", gin.H{"confirm_token": token})
}
