package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unsentboard/unsent-backend/internal/common"
	"github.com/unsentboard/unsent-backend/internal/domain"
	"github.com/unsentboard/unsent-backend/internal/listing"
	"github.com/unsentboard/unsent-backend/internal/middleware"
	"github.com/unsentboard/unsent-backend/internal/service"
)

// MemoryHandler serves the public submission and listing endpoints
type MemoryHandler struct {
	admission *service.AdmissionService
	cache     *listing.Cache
	cacheTTL  int // seconds, for the CDN cache headers
}

// NewMemoryHandler creates a MemoryHandler
func NewMemoryHandler(admission *service.AdmissionService, cache *listing.Cache, cacheTTLSeconds int) *MemoryHandler {
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 30
	}
	return &MemoryHandler{admission: admission, cache: cache, cacheTTL: cacheTTLSeconds}
}

// Submit handles POST /api/submit-memory
func (h *MemoryHandler) Submit(c *gin.Context) {
	var req domain.SubmitMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	identity := middleware.ClientIdentity(c, req.UserUUID)
	m, store, err := h.admission.Submit(c.Request.Context(), identity, req)
	if err != nil {
		var vErr *service.ValidationError
		var qErr *service.QuotaError
		switch {
		case errors.As(err, &vErr):
			common.ValidationErrorResponse(c, vErr.Errors)
		case errors.Is(err, common.ErrBanned):
			common.ErrorResponse(c, http.StatusForbidden, "You are not allowed to submit.", err)
		case errors.As(err, &qErr):
			common.ErrorResponse(c, http.StatusTooManyRequests, qErr.Message, err)
		default:
			common.ErrorResponse(c, http.StatusInternalServerError, "Something went wrong. Please try again.", err)
		}
		return
	}

	common.SuccessResponse(c, http.StatusCreated, "Your memory was left behind.", gin.H{
		"id":       m.ID,
		"database": store,
	})
}

// List handles GET /api/memories — the paginated public listing, approved
// memories only, served through the stale-while-revalidate cache.
func (h *MemoryHandler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid page", nil)
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid pageSize", nil)
		return
	}

	q := listing.Query{
		Page:     page,
		PageSize: pageSize,
		Status:   domain.StatusApproved,
		Search:   c.Query("search"),
		OrderBy:  "created_at",
		Asc:      c.Query("order") == "asc",
	}

	result, err := h.cache.Get(c.Request.Context(), q)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to load memories. Please try again.", err)
		return
	}

	c.Header("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d",
		h.cacheTTL, h.cacheTTL*10))
	c.JSON(http.StatusOK, gin.H{
		"data":       result.Data,
		"totalCount": result.TotalCount,
		"totalPages": result.TotalPages,
	})
}

// CheckUserStatus handles POST /api/check-user-status — the pre-flight
// ban/quota check.
func (h *MemoryHandler) CheckUserStatus(c *gin.Context) {
	var req struct {
		UserUUID string `json:"user_uuid"`
	}
	_ = c.ShouldBindJSON(&req) // body is optional

	identity := middleware.ClientIdentity(c, req.UserUUID)
	status, err := h.admission.CheckStatus(c.Request.Context(), identity)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "status check failed", err)
		return
	}
	c.JSON(http.StatusOK, status)
}
