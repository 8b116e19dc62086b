package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mindwell-health/mindwell-api/api/swagger"
	"github.com/mindwell-health/mindwell-api/internal/handler"
	"github.com/mindwell-health/mindwell-api/internal/middleware"
	"github.com/mindwell-health/mindwell-api/internal/repository"
	"github.com/mindwell-health/mindwell-api/internal/service"
	"github.com/mindwell-health/mindwell-api/pkg/cache"
	"github.com/mindwell-health/mindwell-api/pkg/config"
	"github.com/mindwell-health/mindwell-api/pkg/database"
	"github.com/mindwell-health/mindwell-api/pkg/jobs"
	"github.com/mindwell-health/mindwell-api/pkg/logger"
	corsmiddleware "github.com/mindwell-health/mindwell-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mindwell-health/mindwell-api/pkg/middleware/requestid"
	"github.com/mindwell-health/mindwell-api/pkg/storage"
)

// @title MindWell API
// @version 1.0.0
// @description Mental-wellness platform: therapist directory, availability and booking engine
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, directory cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	therapistRepo := repository.NewTherapistRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "mindwell-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	therapistSvc := service.NewTherapistService(therapistRepo, cacheRepo, cfg.Directory.CacheTTL, validate, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, therapistRepo, userRepo, validate, logr)
	bookingSvc := service.NewBookingService(therapistSvc, appointmentSvc, logr)
	metricsSvc := service.NewMetricsService()
	therapistSvc.SetMetrics(metricsSvc)

	deps := handler.RouterDeps{
		Auth:         handler.NewAuthHandler(authSvc),
		Users:        handler.NewUserHandler(userSvc),
		Therapists:   handler.NewTherapistHandler(therapistSvc),
		Appointments: handler.NewAppointmentHandler(appointmentSvc),
		Booking:      handler.NewBookingHandler(bookingSvc, metricsSvc),
		AuthService:  authSvc,
	}

	if cfg.Chat.Enabled {
		chatRepo := repository.NewChatRepository(db)
		deps.Chat = handler.NewChatHandler(service.NewChatService(chatRepo, validate, logr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportRepo := repository.NewExportRepository(db)
		exportSvc := service.NewExportService(exportRepo, appointmentSvc, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr)

		exportQueue = jobs.NewQueue("exports", exportSvc.Process, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc.SetQueue(exportQueue)
		exportQueue.Start(ctx)

		deps.Exports = handler.NewExportHandler(exportSvc, metricsSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}

	if exportQueue != nil {
		exportQueue.Stop()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
