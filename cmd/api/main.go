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

	"github.com/ecolehub/cartable-api/internal/config"
	"github.com/ecolehub/cartable-api/internal/database"
	"github.com/ecolehub/cartable-api/internal/handler"
	"github.com/ecolehub/cartable-api/internal/middleware"
	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/repository"
	"github.com/ecolehub/cartable-api/internal/router"
	"github.com/ecolehub/cartable-api/internal/service"
	cloud "github.com/ecolehub/cartable-api/pkg/cloudinary"
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

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.ScheduleSlot{},
		&models.Assignment{},
		&models.Submission{},
		&models.Completion{},
		&models.ExamAttempt{},
		&models.Notification{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	var uploader service.FileUploader
	if cfg.CloudinaryCloudName != "" {
		cloudinaryService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudinaryService
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	slotRepo := repository.NewScheduleSlotRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	attemptRepo := repository.NewExamAttemptRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, "cartable-notifications", natsConn, validate, logger)
	activityService := service.NewActivityService(activityRepo, validate, logger)
	userService := service.NewUserService(userRepo, validate, cfg.JWTSecret, cfg.TokenTTL, logger)
	courseService := service.NewCourseService(courseRepo, userRepo, validate, logger)
	scheduleService := service.NewScheduleService(slotRepo, courseRepo, activityService, notificationService, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, completionRepo, activityService, notificationService, uploader, validate, logger)
	examService := service.NewExamService(assignmentRepo, attemptRepo, submissionRepo, courseRepo, logger)
	dashboardService := service.NewDashboardService(courseRepo, assignmentRepo, submissionRepo, completionRepo, slotRepo, redisClient, cfg.DashboardCacheTTL, logger)
	seedService := service.NewSeedService(userRepo, courseRepo, slotRepo, assignmentRepo, cfg.SeedEnabled, cfg.SeedToken, logger)

	serviceCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	notificationService.Start(serviceCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.UploadMaxMB * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(userService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		CourseHandler:       handler.NewCourseHandler(courseService, logger),
		ScheduleHandler:     handler.NewScheduleHandler(scheduleService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, validate, logger),
		ExamHandler:         handler.NewExamHandler(examService, logger),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		SeedHandler:         handler.NewSeedHandler(seedService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
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
