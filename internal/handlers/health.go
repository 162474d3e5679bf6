package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// Health returns a liveness handler reporting the storage mode in use.
func Health(storageType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
			"storage": storageType,
		})
	}
}
