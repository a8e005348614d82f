package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/yoonbi/yoonbi-backend/database"
	"github.com/yoonbi/yoonbi-backend/internal/config"
	"github.com/yoonbi/yoonbi-backend/internal/events"
	"github.com/yoonbi/yoonbi-backend/internal/handlers"
	"github.com/yoonbi/yoonbi-backend/internal/jobs"
	"github.com/yoonbi/yoonbi-backend/internal/routes"
	"github.com/yoonbi/yoonbi-backend/internal/services"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var store storage.Store
	storageType := "PostgreSQL Database"
	if cfg.UseMemoryStore {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
		storageType = "In-Memory (Testing)"
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		db, err := database.Connect(cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		log.Println("🔄 Running database migrations...")
		if err := database.Migrate(db); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")
		store = storage.NewDatabaseStore(db)
	}

	// Notifications fall back to the log when Twilio is not configured
	var notifier services.Notifier = services.LogNotifier{}
	if twilio, err := services.NewTwilioNotifier(cfg.Twilio); err != nil {
		log.Printf("⚠️  Twilio not configured (%v) - messages will be logged", err)
	} else {
		notifier = twilio
		log.Println("✅ Twilio service initialized")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Printf("⚠️  RabbitMQ unavailable (%v) - events disabled", err)
		} else {
			publisher = amqpPublisher
			log.Printf("✅ Publishing events to exchange %s", cfg.RabbitMQ.Exchange)
		}
	}
	defer publisher.Close()

	// Initialize all services
	tokens := services.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	svc := routes.Services{
		Auth:         services.NewAuthService(store, tokens, notifier, !cfg.IsProduction()),
		Trips:        services.NewTripService(store, publisher),
		Reservations: services.NewReservationService(store, notifier, publisher),
		Payments:     services.NewPaymentService(store, publisher),
		Evaluations:  services.NewEvaluationService(store),
		Reports:      services.NewReportService(store),
		Admin:        services.NewAdminService(store),
		Finance:      services.NewFinanceService(store),
	}

	if err := svc.Auth.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Fatal("Failed to create admin account:", err)
	}

	reminderJob := jobs.NewReminderJob(store, notifier, cfg.ReminderInterval)
	reminderJob.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "Yoon-Bi Backend v" + version,
		ErrorHandler: handlers.ErrorHandler(cfg.IsProduction()),
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	routes.SetupRoutes(app, svc, handlers.NewHealthHandler(version, storageType, store))

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		log.Println("🛑 Gracefully shutting down...")
		reminderJob.Stop()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 Yoon-Bi Backend starting on port %s", cfg.Port)
	log.Printf("📊 Storage: %s", storageType)
	log.Printf("🌍 Environment: %s", cfg.Env)
	log.Println("========================================")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Println("Server stopped:", err)
	}
}
