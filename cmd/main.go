package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	redisclient "github.com/kramikkk/vitalink-ai/internal/clients/redis"
	"github.com/kramikkk/vitalink-ai/internal/config"
	"github.com/kramikkk/vitalink-ai/internal/db"
	"github.com/kramikkk/vitalink-ai/internal/handlers"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/middleware"
	"github.com/kramikkk/vitalink-ai/internal/observability"
	"github.com/kramikkk/vitalink-ai/internal/repos"
	"github.com/kramikkk/vitalink-ai/internal/server"
	"github.com/kramikkk/vitalink-ai/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	cfg := config.Load(log)

	// Tracing (no-op unless OTEL_ENABLED is set)
	if shutdown := observability.InitTracing(context.Background(), log, observability.TracingConfig{
		ServiceName: "vitalink",
		Environment: logMode,
	}); shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warn("Tracing shutdown failed", "error", err)
			}
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis (optional): without it the alert engine relies on the database
	// dedup window alone.
	var dedupGate redisclient.DedupGate
	if cfg.RedisAddr != "" {
		dedupGate, err = redisclient.NewDedupGate(log, cfg.RedisAddr)
		if err != nil {
			log.Warn("Redis init failed, alert dedup runs on the database only", "error", err)
			dedupGate = nil
		} else {
			defer dedupGate.Close()
		}
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	deviceRepo := repos.NewDeviceRepo(thePG, log)
	metricRepo := repos.NewMetricRepo(thePG, log)
	alertRepo := repos.NewAlertRepo(thePG, log)
	artifactRepo := repos.NewModelArtifactRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	userService := services.NewUserService(thePG, log, userRepo)
	inferenceService := services.NewInferenceService(thePG, log, artifactRepo, cfg)
	trainingService := services.NewTrainingService(thePG, log, metricRepo, artifactRepo, inferenceService, cfg)
	alertService := services.NewAlertService(thePG, log, alertRepo, dedupGate, cfg)
	deviceService := services.NewDeviceService(thePG, log, deviceRepo)
	metricsService := services.NewMetricsService(thePG, log, metricRepo)
	ingestionService := services.NewIngestionService(thePG, log, deviceRepo, metricRepo, inferenceService, alertService)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	deviceHandler := handlers.NewDeviceHandler(deviceService)
	metricHandler := handlers.NewMetricHandler(metricsService)
	alertHandler := handlers.NewAlertHandler(alertService)
	modelHandler := handlers.NewModelHandler(trainingService, inferenceService)
	sensorStreamHandler := handlers.NewSensorStreamHandler(log, ingestionService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:         authHandler,
		AuthMiddleware:      authMiddleware,
		UserHandler:         userHandler,
		DeviceHandler:       deviceHandler,
		MetricHandler:       metricHandler,
		AlertHandler:        alertHandler,
		ModelHandler:        modelHandler,
		SensorStreamHandler: sensorStreamHandler,
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server failed", "error", err)
	}
	log.Info("Server stopped")
}
