package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "giveaway-engine-backend/docs"
	"giveaway-engine-backend/internal/common/config"
	"giveaway-engine-backend/internal/common/logger"
	"giveaway-engine-backend/internal/common/metrics"
	"giveaway-engine-backend/internal/common/middleware"
	giveawayhttp "giveaway-engine-backend/internal/features/giveaway/delivery/http"
	"giveaway-engine-backend/internal/features/giveaway/repository"
	postgresRepo "giveaway-engine-backend/internal/features/giveaway/repository/postgres"
	"giveaway-engine-backend/internal/features/giveaway/service"
	"giveaway-engine-backend/internal/platform/captcha"
	"giveaway-engine-backend/internal/platform/db"
	"giveaway-engine-backend/internal/platform/ratelimit"
	redisplatform "giveaway-engine-backend/internal/platform/redis"
)

// @title           Giveaway Engine API
// @version         1.0
// @description     Participation and fair winner-selection engine for public giveaways. Join endpoints are rate limited per IP and per device fingerprint and protected by Cloudflare Turnstile.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @tag.name giveaways
// @tag.description Giveaway participation, duplicate checks and winner selection

func main() {
	cfg := config.Load()

	logger.Init("giveaway-engine", cfg.Debug)
	logger.Info().Bool("debug", cfg.Debug).Msg("starting giveaway engine backend")

	database, err := db.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	// Хранилище лимитера: Redis для многоэкземплярного деплоя,
	// in-memory для единственного инстанса и локальной разработки
	var limiterStore ratelimit.Store
	if cfg.Redis.Enabled {
		redisClient, rerr := redisplatform.New(cfg)
		if rerr != nil {
			logger.Fatal().Err(rerr).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		limiterStore = ratelimit.NewRedisStore(redisClient)
	} else {
		memStore := ratelimit.NewMemoryStore()
		limiterStore = memStore
		janitorCtx, janitorCancel := context.WithCancel(context.Background())
		defer janitorCancel()
		memStore.StartJanitor(janitorCtx)
	}
	limiter := ratelimit.New(limiterStore)

	verifier := captcha.NewVerifier(cfg)
	if verifier.Enabled() {
		logger.Info().Msg("turnstile verification enabled")
	} else {
		logger.Warn().Msg("turnstile verification disabled, joins are not captcha protected")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	var giveawayRepo repository.GiveawayRepository = postgresRepo.NewPostgresRepository(database)

	participationSvc := service.NewParticipationService(giveawayRepo, limiter, verifier, appMetrics, cfg)
	winnerSvc := service.NewWinnerService(giveawayRepo, appMetrics)

	if cfg.Sweep.Enabled {
		sweeper := service.NewExpirationService(giveawayRepo, cfg.Sweep.Interval)
		sweeper.Start()
		defer sweeper.Stop()
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler(logger.With("recovery")))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", "X-User-ID", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	roles := middleware.NewConfigRoleLookup(cfg.Admin.IDs)
	handler := giveawayhttp.NewGiveawayHandler(participationSvc, winnerSvc)

	v1 := router.Group("/api/v1")
	handler.RegisterRoutes(v1, roles)

	router.GET("/health", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server exited")
}
