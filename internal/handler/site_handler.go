package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unsentboard/unsent-backend/internal/common"
	"github.com/unsentboard/unsent-backend/internal/service"
)

// SiteHandler serves the public site-state endpoints
type SiteHandler struct {
	site *service.SiteService
}

// NewSiteHandler creates a SiteHandler
func NewSiteHandler(site *service.SiteService) *SiteHandler {
	return &SiteHandler{site: site}
}

// ActiveAnnouncement handles GET /api/announcements. Returns the current
// unexpired announcement, or a null payload when there is none.
func (h *SiteHandler) ActiveAnnouncement(c *gin.Context) {
	a, err := h.site.ActiveAnnouncement(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load announcement", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcement": a})
}

// MaintenanceStatus handles GET /api/admin/maintenance
func (h *SiteHandler) MaintenanceStatus(c *gin.Context) {
	flag, err := h.site.Maintenance(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load maintenance flag", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"is_active": flag.IsActive,
		"message":   flag.Message,
	})
}
