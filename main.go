package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quarterlog-bot/internal/broadcast"
	"quarterlog-bot/internal/config"
	"quarterlog-bot/internal/database"
	"quarterlog-bot/internal/handlers"
	"quarterlog-bot/internal/locales"
	"quarterlog-bot/internal/messenger"
	"quarterlog-bot/internal/observability"
	"quarterlog-bot/internal/scheduler"

	sentry "github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize localization bundle
	locales.Init(cfg.DefaultLanguage)

	// Initialize Sentry (if DSN is provided)
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	// Connect to MongoDB
	client, db, err := database.ConnectDB(context.Background(), cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	defer func() {
		if err = client.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
			sentry.CaptureException(err)
		} else {
			log.Println("Disconnected from MongoDB.")
		}
	}()

	if err := database.EnsureIndexes(context.Background(), db); err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	// Create repository instances
	userRepo := database.NewMongoUserRepository(db)
	activityRepo := database.NewMongoActivityRepository(db)

	// Create the SMS messenger
	sms, err := messenger.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create twilio client: %v", err)
	}

	// Create the reply/API handler with dependencies
	handler, err := handlers.NewHandler(userRepo, activityRepo, sms, cfg.Debug)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	// Create the reminder broadcaster and its scheduler
	broadcaster, err := broadcast.New(userRepo, sms, cfg.SendRatePerSecond, cfg.Debug)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	sched, err := scheduler.New(broadcaster, cfg.BroadcastStartHour, cfg.BroadcastEndHour, cfg.Debug)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	// Creating context for application lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// HTTP app: webhook + JSON API
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "internal server error"

			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
				message = fiberErr.Message
			}

			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})
	handler.RegisterRoutes(app)

	// Start the scheduler loop in a separate goroutine
	go sched.Start(ctx)

	// Metrics listener
	go func() {
		if err := observability.ServeMetrics(cfg.MetricsAddr); err != nil {
			log.Printf("Metrics listener error: %v", err)
			sentry.CaptureException(err)
		}
	}()

	// Serve HTTP
	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			sentry.CaptureException(err)
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for context cancellation (e.g., SIGINT, SIGTERM)
	<-ctx.Done()

	log.Println("Shutting down...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
		sentry.CaptureException(err)
	}

	log.Println("Shutdown complete.")
}
