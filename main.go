package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/drawmart/drawmart-backend/database"
	"github.com/drawmart/drawmart-backend/internal/config"
	"github.com/drawmart/drawmart-backend/internal/handlers"
	"github.com/drawmart/drawmart-backend/internal/models"
	"github.com/drawmart/drawmart-backend/internal/routes"
	"github.com/drawmart/drawmart-backend/internal/services"
	"github.com/drawmart/drawmart-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("environments/.env.development"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	cfg := config.Load()

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.VerificationCode{},
			&models.User{},
			&models.LoginAudit{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
	}

	// Pick the code delivery channel. Production requires a real gateway;
	// everywhere else falls back to the console when Twilio is not configured.
	var sender services.SMSSender
	if cfg.Twilio.AccountSID != "" {
		twilioSender, err := services.NewTwilioSender(cfg.Twilio)
		if err != nil {
			log.Fatal("Failed to initialize Twilio sender:", err)
		}
		sender = twilioSender
		log.Println("✅ Twilio SMS sender initialized")
	} else if cfg.IsProduction() {
		log.Fatal("Twilio credentials are required in production")
	} else {
		sender = services.ConsoleSender{}
		log.Println("⚠️  SMS codes will be logged to the console")
	}

	// Initialize services
	tokenService := services.NewTokenService(cfg.JWT)
	otpService := services.NewOTPService(store, sender, cfg)
	authService := services.NewAuthService(store, tokenService, cfg)
	authHandler := handlers.NewAuthHandler(otpService, authService, tokenService)

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "DrawMart Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Setup routes
	routes.SetupRoutes(app, authHandler, tokenService, getStorageType())

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 DrawMart Backend starting on port %s", cfg.Port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("🌍 Environment: %s", cfg.Env)
	log.Println("========================================")

	log.Fatal(app.Listen(":" + cfg.Port))
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}
