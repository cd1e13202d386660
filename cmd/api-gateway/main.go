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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/peakform/coachdesk-api/api/swagger"
	"github.com/peakform/coachdesk-api/internal/dto"
	"github.com/peakform/coachdesk-api/internal/handler"
	"github.com/peakform/coachdesk-api/internal/middleware"
	"github.com/peakform/coachdesk-api/internal/models"
	"github.com/peakform/coachdesk-api/internal/notifier"
	"github.com/peakform/coachdesk-api/internal/repository"
	"github.com/peakform/coachdesk-api/internal/service"
	"github.com/peakform/coachdesk-api/pkg/cache"
	"github.com/peakform/coachdesk-api/pkg/config"
	"github.com/peakform/coachdesk-api/pkg/database"
	"github.com/peakform/coachdesk-api/pkg/logger"
	corsmiddleware "github.com/peakform/coachdesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/peakform/coachdesk-api/pkg/middleware/requestid"
)

// @title CoachDesk API
// @version 0.1.0
// @description Lesson reminders, acknowledgments, and time-swap coordination
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	marker := service.NewMemorySentMarker()
	if cfg.Reminders.DedupBackend == config.DedupBackendRedis {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		marker = service.NewRedisSentMarker(redisClient, cfg.Reminders.DedupTTL)
	}

	lessonRepo := repository.NewLessonRepository(db)
	userRepo := repository.NewUserRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	chatRepo := repository.NewChatRepository(db)
	swapRepo := repository.NewSwapRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	dispatcher := notifier.NewDispatcher(
		notifier.NewLogEmailSender(logr),
		notifier.NewLogPushNotifier(logr),
		cfg.Reminders.EmailTimeout,
		cfg.Notifications,
		logr,
	)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(cfg.JWT, logr)
	reminderSvc := service.NewReminderService(
		lessonRepo, userRepo, reminderRepo, chatRepo, marker, dispatcher, metricsSvc,
		service.ReminderServiceConfig{
			Timezone:    cfg.Reminders.Timezone,
			Concurrency: cfg.Reminders.WorkerConcurrency,
		},
		logr,
	)
	swapSvc := service.NewSwapService(swapRepo, lessonRepo, notificationRepo, chatRepo, dispatcher, db, metricsSvc, nil, logr)
	ackSvc := service.NewAcknowledgeService(chatRepo, reminderRepo, lessonRepo, swapSvc, metricsSvc, logr)

	reminderHandler := handler.NewReminderHandler(reminderSvc, cfg.Reminders.Mode, cfg.Reminders.SweepDeadline)
	messageHandler := handler.NewMessageHandler(ackSvc)
	swapHandler := handler.NewSwapHandler(swapSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))
	{
		api.POST("/reminders/sweep",
			middleware.RequireRoles(models.RoleAdmin, models.RoleCoach),
			reminderHandler.Sweep)
		api.POST("/messages/:id/acknowledge", messageHandler.Acknowledge)
		api.POST("/swap-requests/:id/decision",
			middleware.RequireRoles(models.RoleAdmin, models.RoleClient),
			swapHandler.Decide)
	}

	if cfg.Reminders.Enabled {
		go runSweepLoop(ctx, cfg.Reminders, reminderSvc, logr)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

type sweeper interface {
	Sweep(ctx context.Context, now time.Time, mode string, targetClientID string) (*dto.DispatchReport, error)
}

// runSweepLoop triggers periodic sweeps until the context ends. Each run
// gets its own deadline so a wedged run cannot block the next tick forever.
func runSweepLoop(ctx context.Context, cfg config.RemindersConfig, svc sweeper, logr *zap.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	logr.Sugar().Infow("reminder sweep loop started",
		"interval", cfg.SweepInterval, "mode", cfg.Mode)

	for {
		select {
		case <-ctx.Done():
			logr.Sugar().Infow("reminder sweep loop stopped")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, cfg.SweepDeadline)
			if _, err := svc.Sweep(runCtx, time.Now().UTC(), cfg.Mode, ""); err != nil {
				logr.Sugar().Errorw("periodic sweep failed", "error", err)
			}
			cancel()
		}
	}
}
