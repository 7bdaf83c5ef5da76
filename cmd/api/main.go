package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/kelasio/kelas-admin-api/internal/config"
	"github.com/kelasio/kelas-admin-api/internal/database"
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/handler"
	"github.com/kelasio/kelas-admin-api/internal/middleware"
	"github.com/kelasio/kelas-admin-api/internal/repository"
	"github.com/kelasio/kelas-admin-api/internal/router"
	"github.com/kelasio/kelas-admin-api/internal/service"
	cloud "github.com/kelasio/kelas-admin-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var events service.EventPublisher
	if cfg.NATSUrl != "" {
		conn, err := nats.Connect(cfg.NATSUrl)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, grading events disabled")
		} else {
			defer conn.Drain()
			events = service.NewNatsPublisher(conn, cfg.EventSubjectPrefix, logger)
		}
	}

	var uploader service.FileUploader
	if cfg.CloudinaryCloudName != "" {
		cloudinaryUploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudinaryUploader
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	gradingRepo := repository.NewGradingRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	statsService := service.NewQueueStatsService(redisClient, cfg.StatsCacheTTL, logger)
	queueService := service.NewGradingQueueService(gradingRepo, gradingRepo, statsService, logger)
	exportService := service.NewExportService(gradingRepo, uploader, logger)
	suggestionService := service.NewSuggestionService(gradingRepo, logger)
	sessionService := service.NewGradingSessionService(
		gradingRepo, gradingRepo, validate, activityService, events,
		cfg.AutoSaveInterval, cfg.GatewayTimeout, logger,
	)
	defer sessionService.CloseAll()

	coordinator := grading.NewBatchCoordinator(gradingRepo, logger)
	batchService := service.NewBatchService(coordinator, validate, statsService, activityService, events, cfg.GatewayTimeout, logger)

	queueHandler := handler.NewGradingQueueHandler(queueService, exportService, logger)
	sessionHandler := handler.NewGradingSessionHandler(sessionService, logger)
	batchHandler := handler.NewBatchHandler(batchService, logger)
	suggestionHandler := handler.NewSuggestionHandler(suggestionService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		QueueHandler:      queueHandler,
		SessionHandler:    sessionHandler,
		BatchHandler:      batchHandler,
		SuggestionHandler: suggestionHandler,
		ActivityHandler:   activityHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepIdleSessions(sweepCtx, sessionService, cfg.SessionIdleTTL)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// sweepIdleSessions periodically evicts grading sessions nobody has touched
// within the idle TTL, cancelling their auto-save tasks.
func sweepIdleSessions(ctx context.Context, sessions service.GradingSessionService, idleTTL time.Duration) {
	if idleTTL <= 0 {
		return
	}

	ticker := time.NewTicker(idleTTL / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep(idleTTL)
		}
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
