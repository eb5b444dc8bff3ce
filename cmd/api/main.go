package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/unsentboard/unsent-backend/internal/config"
	"github.com/unsentboard/unsent-backend/internal/dualstore"
	"github.com/unsentboard/unsent-backend/internal/geoip"
	"github.com/unsentboard/unsent-backend/internal/handler"
	"github.com/unsentboard/unsent-backend/internal/listing"
	"github.com/unsentboard/unsent-backend/internal/migration"
	"github.com/unsentboard/unsent-backend/internal/ratelimit"
	"github.com/unsentboard/unsent-backend/internal/repository"
	"github.com/unsentboard/unsent-backend/internal/routes"
	"github.com/unsentboard/unsent-backend/internal/service"
	pkglogger "github.com/unsentboard/unsent-backend/pkg/logger"
	pkgredis "github.com/unsentboard/unsent-backend/pkg/redis"
)

// getConfigPath returns the config file path based on APP_ENV
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	logr := pkglogger.GetLogger()
	logr.Info().Str("env", env).Strs("env_files", dotenvFiles).Msg("starting")

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Two independent backing stores. Both must be reachable at startup;
	// the gateway tolerates one of them failing later.
	dbA, err := openStore(cfg.StoreA)
	if err != nil {
		log.Fatalf("Failed to connect to store A: %v", err)
	}
	dbB, err := openStore(cfg.StoreB)
	if err != nil {
		log.Fatalf("Failed to connect to store B: %v", err)
	}

	if err := migration.RunStore(dbA); err != nil {
		log.Fatalf("Store A migration failed: %v", err)
	}
	if err := migration.RunStore(dbB); err != nil {
		log.Fatalf("Store B migration failed: %v", err)
	}
	// Store A is the primary: bans, whitelist and site state live there only.
	if err := migration.RunPrimary(dbA); err != nil {
		log.Fatalf("Primary migration failed: %v", err)
	}

	// Redis is optional. Sessions fall back to memory and cache persistence
	// is disabled without it.
	var rdb *goredis.Client
	if cfg.Redis.Host != "" {
		rdb, err = pkgredis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
		if err != nil {
			logr.Warn().Err(err).Msg("redis unavailable, continuing without it")
			rdb = nil
		}
	}

	repoA := repository.NewMemoryRepository(dbA, "A")
	repoB := repository.NewMemoryRepository(dbB, "B")
	banRepo := repository.NewBanRepository(dbA)
	whitelistRepo := repository.NewWhitelistRepository(dbA)
	siteRepo := repository.NewSiteRepository(dbA)

	gateway := dualstore.NewGateway(repoA, repoB, cfg.StoreTimeout.Duration)

	cache := listing.NewCache(gateway, listing.Config{
		MaxAge:               cfg.Cache.MaxAge.Duration,
		StaleWhileRevalidate: cfg.Cache.StaleWhileRevalidate.Duration,
		MaxEntries:           cfg.Cache.MaxEntries,
		PrefetchDepth:        cfg.Cache.PrefetchDepth,
		Persist:              cfg.Cache.Persist,
	}, rdb)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if restored := cache.Restore(ctx); restored > 0 {
		logr.Info().Int("entries", restored).Msg("listing cache restored from redis")
	}

	geo := geoip.NewClient(cfg.GeoIP.Endpoint, cfg.GeoIP.Timeout.Duration)

	admission := service.NewAdmissionService(gateway, banRepo, whitelistRepo, siteRepo, geo, service.AdmissionConfig{
		DefaultQuota: cfg.Admission.DefaultQuota,
		OwnerIPs:     cfg.Admission.OwnerIPs,
	})
	moderation := service.NewModerationService(gateway, banRepo, cache)
	site := service.NewSiteService(siteRepo, whitelistRepo)
	auth := service.NewAuthService(service.AuthConfig{
		Username:      cfg.Admin.Username,
		PasswordHash:  cfg.Admin.PasswordHash,
		StepUpSecret:  cfg.Admin.StepUpSecret,
		SessionMaxAge: cfg.Admin.SessionMaxAge.Duration,
	}, rdb)

	limiter := ratelimit.NewLimiter()
	limiter.StartSweeper(ctx, cfg.Sweep.RateLimitInterval.Duration)
	moderation.StartPinSweeper(ctx, cfg.Sweep.PinInterval.Duration)

	memoryHandler := handler.NewMemoryHandler(admission, cache, int(cfg.Cache.MaxAge.Duration.Seconds()))
	adminHandler := handler.NewAdminHandler(moderation, site, gateway, limiter)
	authHandler := handler.NewAuthHandler(auth)
	siteHandler := handler.NewSiteHandler(site)

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	routes.Setup(router, memoryHandler, adminHandler, authHandler, siteHandler, auth, site, limiter, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logr.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error().Err(err).Msg("graceful shutdown failed")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}

func openStore(sc config.StoreConfig) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(sc.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}
