package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/drawmart/drawmart-backend/internal/handlers"
	"github.com/drawmart/drawmart-backend/internal/middleware"
	"github.com/drawmart/drawmart-backend/internal/services"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, authHandler *handlers.AuthHandler, tokens *services.TokenService, storageType string) {

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to DrawMart Backend!",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health": "/health",
				"api":    "/api",
			},
		})
	})

	// Health check
	app.Get("/health", handlers.Health(storageType))

	// API routes
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/otp/request", authHandler.RequestCode)
	auth.Post("/otp/verify", authHandler.VerifyCode)
	auth.Post("/otp/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Get("/me", middleware.RequireAuth(tokens), authHandler.Me)
}
