package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unsentboard/unsent-backend/internal/common"
	"github.com/unsentboard/unsent-backend/internal/domain"
	"github.com/unsentboard/unsent-backend/internal/dualstore"
	"github.com/unsentboard/unsent-backend/internal/ratelimit"
	"github.com/unsentboard/unsent-backend/internal/service"
)

// AdminHandler serves the moderation and site-state endpoints
type AdminHandler struct {
	moderation *service.ModerationService
	site       *service.SiteService
	gateway    *dualstore.Gateway
	limiter    *ratelimit.Limiter
}

// NewAdminHandler creates an AdminHandler
func NewAdminHandler(
	moderation *service.ModerationService,
	site *service.SiteService,
	gateway *dualstore.Gateway,
	limiter *ratelimit.Limiter,
) *AdminHandler {
	return &AdminHandler{
		moderation: moderation,
		site:       site,
		gateway:    gateway,
		limiter:    limiter,
	}
}

// ListMemories handles GET /api/admin/memories?status=pending
func (h *AdminHandler) ListMemories(c *gin.Context) {
	status := c.DefaultQuery("status", domain.StatusPending)
	if status != domain.StatusPending && status != domain.StatusApproved {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid status", nil)
		return
	}

	memories, err := h.moderation.ListByStatus(c.Request.Context(), status)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list memories", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"memories": memories})
}

// UpdateMemory handles POST /api/admin/update-memory. Actions: approve,
// pin (with duration_minutes), unpin.
func (h *AdminHandler) UpdateMemory(c *gin.Context) {
	var req struct {
		ID              string `json:"id"`
		Action          string `json:"action"`
		DurationMinutes int    `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" || req.Action == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "id and action are required", err)
		return
	}

	ctx := c.Request.Context()
	var err error
	switch req.Action {
	case "approve":
		err = h.moderation.Approve(ctx, req.ID)
	case "pin":
		if req.DurationMinutes <= 0 {
			common.ErrorResponse(c, http.StatusBadRequest, "duration_minutes must be positive", nil)
			return
		}
		err = h.moderation.Pin(ctx, req.ID, time.Duration(req.DurationMinutes)*time.Minute)
	case "unpin":
		err = h.moderation.Unpin(ctx, req.ID)
	default:
		common.ErrorResponse(c, http.StatusBadRequest, "unknown action", nil)
		return
	}
	if err != nil {
		h.writeMutationError(c, err)
		return
	}
	common.SuccessResponse(c, http.StatusOK, "memory updated", nil)
}

// DeleteMemory handles DELETE /api/admin/delete-memory (reject)
func (h *AdminHandler) DeleteMemory(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "id is required", nil)
		return
	}
	if err := h.moderation.Reject(c.Request.Context(), id); err != nil {
		h.writeMutationError(c, err)
		return
	}
	common.SuccessResponse(c, http.StatusOK, "memory deleted", nil)
}

// Ban handles POST /api/admin/ban: deletes the memory and bans its identity
func (h *AdminHandler) Ban(c *gin.Context) {
	var req struct {
		MemoryID string `json:"memory_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.MemoryID == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "memory_id is required", err)
		return
	}
	if err := h.moderation.Ban(c.Request.Context(), req.MemoryID); err != nil {
		h.writeMutationError(c, err)
		return
	}
	common.SuccessResponse(c, http.StatusOK, "memory deleted and identity banned", nil)
}

// Unban handles DELETE /api/admin/ban
func (h *AdminHandler) Unban(c *gin.Context) {
	identity := domain.Identity{IP: c.Query("ip"), UUID: c.Query("uuid")}
	if !identity.Known() {
		common.ErrorResponse(c, http.StatusBadRequest, "ip or uuid is required", nil)
		return
	}
	removed, err := h.moderation.Unban(c.Request.Context(), identity)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "unban failed", err)
		return
	}
	common.SuccessResponse(c, http.StatusOK, "unbanned", gin.H{"removed": removed})
}

// ListBans handles GET /api/admin/ban
func (h *AdminHandler) ListBans(c *gin.Context) {
	bans, err := h.moderation.ListBans(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list bans", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bans": bans})
}

// Unlimited handles POST /api/admin/unlimited — quota overrides. With ip it
// upserts a whitelist entry (limit <= 0 meaning unlimited); with
// disable_until it switches the global quota off until then.
func (h *AdminHandler) Unlimited(c *gin.Context) {
	var req struct {
		IP           string     `json:"ip"`
		Limit        int        `json:"limit"`
		Notes        string     `json:"notes"`
		DisableUntil *time.Time `json:"disable_until"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctx := c.Request.Context()
	switch {
	case req.DisableUntil != nil:
		if err := h.site.DisableQuotaUntil(ctx, req.DisableUntil); err != nil {
			common.ErrorResponse(c, http.StatusInternalServerError, "failed to disable quota", err)
			return
		}
		common.SuccessResponse(c, http.StatusOK, "quota disabled", nil)
	case req.IP != "":
		if err := h.site.Whitelist(ctx, req.IP, req.Limit, req.Notes); err != nil {
			common.ErrorResponse(c, http.StatusInternalServerError, "failed to whitelist", err)
			return
		}
		common.SuccessResponse(c, http.StatusCreated, "whitelisted", nil)
	default:
		common.ErrorResponse(c, http.StatusBadRequest, "ip or disable_until is required", nil)
	}
}

// Unwhitelist handles DELETE /api/admin/unlimited
func (h *AdminHandler) Unwhitelist(c *gin.Context) {
	ip := c.Query("ip")
	if ip == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "ip is required", nil)
		return
	}
	removed, err := h.site.Unwhitelist(c.Request.Context(), ip)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to remove whitelist entry", err)
		return
	}
	common.SuccessResponse(c, http.StatusOK, "whitelist entry removed", gin.H{"removed": removed})
}

// ListWhitelist handles GET /api/admin/unlimited
func (h *AdminHandler) ListWhitelist(c *gin.Context) {
	entries, err := h.site.ListWhitelist(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list whitelist", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"whitelist": entries})
}

// SetMaintenance handles POST /api/admin/maintenance
func (h *AdminHandler) SetMaintenance(c *gin.Context) {
	var req struct {
		IsActive bool   `json:"is_active"`
		Message  string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.site.SetMaintenance(c.Request.Context(), req.IsActive, req.Message); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to update maintenance flag", err)
		return
	}
	common.SuccessResponse(c, http.StatusOK, "maintenance flag updated", nil)
}

// CreateAnnouncement handles POST /api/admin/announcements
func (h *AdminHandler) CreateAnnouncement(c *gin.Context) {
	var req struct {
		Message   string    `json:"message"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	a, err := h.site.Announce(c.Request.Context(), req.Message, req.ExpiresAt)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error(), err)
		return
	}
	common.SuccessResponse(c, http.StatusCreated, "announcement created", a)
}

// ClearAnnouncements handles DELETE /api/admin/announcements
func (h *AdminHandler) ClearAnnouncements(c *gin.Context) {
	if err := h.site.ClearAnnouncements(c.Request.Context()); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to clear announcements", err)
		return
	}
	common.SuccessResponse(c, http.StatusOK, "announcements cleared", nil)
}

// ClearRateLimit handles POST /api/admin/clear-rate-limit
func (h *AdminHandler) ClearRateLimit(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Identifier == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "identifier is required", err)
		return
	}
	cleared := h.limiter.Clear(req.Identifier)
	msg := "no rate-limit entry for identifier"
	if cleared {
		msg = "rate-limit entry cleared"
	}
	common.SuccessResponse(c, http.StatusOK, msg, gin.H{"cleared": cleared})
}

// Health handles GET /api/admin/health — per-store probe for operators
func (h *AdminHandler) Health(c *gin.Context) {
	health := h.gateway.CheckHealth(c.Request.Context())
	report := func(err error) gin.H {
		if err != nil {
			return gin.H{"healthy": false, "error": err.Error()}
		}
		return gin.H{"healthy": true}
	}
	c.JSON(http.StatusOK, gin.H{
		"store_a": report(health.StoreA),
		"store_b": report(health.StoreB),
	})
}

func (h *AdminHandler) writeMutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrMemoryNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "memory not found in either store", err)
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, "store operation failed", err)
	}
}
