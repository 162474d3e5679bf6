package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/drawmart/drawmart-backend/internal/services"
)

// RequireAuth validates the Bearer access token and stores the user ID in
// the request context under "userID".
func RequireAuth(tokens *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		userID, err := tokens.ParseAccess(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("userID", userID)
		return c.Next()
	}
}
