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

	"github.com/skillcert/skillcert-api/internal/auth"
	"github.com/skillcert/skillcert-api/internal/config"
	"github.com/skillcert/skillcert-api/internal/database"
	"github.com/skillcert/skillcert-api/internal/handler"
	"github.com/skillcert/skillcert-api/internal/middleware"
	"github.com/skillcert/skillcert-api/internal/models"
	"github.com/skillcert/skillcert-api/internal/otp"
	"github.com/skillcert/skillcert-api/internal/repository"
	"github.com/skillcert/skillcert-api/internal/router"
	"github.com/skillcert/skillcert-api/internal/service"
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

	if err := db.AutoMigrate(&models.User{}, &models.Assessment{}, &models.UserProgress{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	tokenIssuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret)
	if err != nil {
		log.Fatalf("failed to create token issuer: %v", err)
	}

	var otpDelivery otp.Delivery = service.NewLogOTPDelivery(logger)
	if cfg.NATSURL != "" {
		natsConn, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
		otpDelivery = service.NewNATSOTPDelivery(natsConn, "", logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	otpManager := otp.NewManager(redisClient, otpDelivery, logger)

	authService := service.NewAuthService(userRepo, otpManager, tokenIssuer, validate, logger)
	progressService := service.NewProgressService(progressRepo, assessmentRepo, redisClient, cfg.ProgressCacheTTL, logger)
	assessmentService := service.NewAssessmentService(assessmentRepo, progressService, validate, logger)
	seedService := service.NewSeedService(userRepo, cfg.SeedEnabled, cfg.SeedToken, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	assessmentHandler := handler.NewAssessmentHandler(assessmentService, logger)
	progressHandler := handler.NewProgressHandler(progressService, logger)
	seedHandler := handler.NewSeedHandler(seedService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:       authHandler,
		AssessmentHandler: assessmentHandler,
		ProgressHandler:   progressHandler,
		SeedHandler:       seedHandler,
		JWTMiddleware:     middleware.JWTProtected(tokenIssuer),
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
