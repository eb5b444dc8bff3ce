package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unsentboard/unsent-backend/internal/config"
	"github.com/unsentboard/unsent-backend/internal/handler"
	"github.com/unsentboard/unsent-backend/internal/middleware"
	"github.com/unsentboard/unsent-backend/internal/ratelimit"
	"github.com/unsentboard/unsent-backend/internal/service"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	memoryHandler *handler.MemoryHandler,
	adminHandler *handler.AdminHandler,
	authHandler *handler.AuthHandler,
	siteHandler *handler.SiteHandler,
	auth *service.AuthService,
	site *service.SiteService,
	limiter *ratelimit.Limiter,
	cfg *config.Config,
) {
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())

	corsCfg := cors.DefaultConfig()
	if cfg.Server.AllowOrigins == "" || cfg.Server.AllowOrigins == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.Server.AllowOrigins}
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, middleware.StepUpHeader)
	router.Use(cors.New(corsCfg))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", adminHandler.Health)

	api := router.Group("/api")

	// Public endpoints. Submission sits behind both the maintenance gate and
	// the per-IP rate limiter; reads only behind maintenance.
	public := api.Group("", middleware.Maintenance(site))
	public.POST("/submit-memory",
		middleware.RateLimit(limiter, "submit", ratelimit.Config{
			MaxRequests:   cfg.RateLimit.SubmitPerWindow,
			Window:        cfg.RateLimit.Window.Duration,
			BlockDuration: cfg.RateLimit.BlockDuration.Duration,
		}),
		memoryHandler.Submit)
	public.GET("/memories", memoryHandler.List)
	public.POST("/check-user-status", memoryHandler.CheckUserStatus)
	public.GET("/announcements", siteHandler.ActiveAnnouncement)

	// Admin auth (no session required)
	api.POST("/admin/auth", authHandler.Login)
	api.GET("/admin/auth", authHandler.Check)
	api.DELETE("/admin/auth", authHandler.Logout)

	// Everything else under /admin requires a live session; destructive
	// operations additionally require a step-up confirmation token.
	admin := api.Group("/admin", middleware.RequireAdmin(auth))
	stepUp := middleware.RequireStepUp(auth)

	admin.POST("/auth/step-up", authHandler.StepUp)

	admin.GET("/memories", adminHandler.ListMemories)
	admin.POST("/update-memory", adminHandler.UpdateMemory)
	admin.DELETE("/delete-memory", stepUp, adminHandler.DeleteMemory)

	admin.POST("/ban", stepUp, adminHandler.Ban)
	admin.DELETE("/ban", adminHandler.Unban)
	admin.GET("/ban", adminHandler.ListBans)

	admin.POST("/unlimited", adminHandler.Unlimited)
	admin.DELETE("/unlimited", adminHandler.Unwhitelist)
	admin.GET("/unlimited", adminHandler.ListWhitelist)

	admin.POST("/maintenance", adminHandler.SetMaintenance)
	admin.GET("/maintenance", siteHandler.MaintenanceStatus)

	admin.POST("/announcements", adminHandler.CreateAnnouncement)
	admin.DELETE("/announcements", adminHandler.ClearAnnouncements)

	admin.POST("/clear-rate-limit", adminHandler.ClearRateLimit)
	admin.GET("/health", adminHandler.Health)
}
