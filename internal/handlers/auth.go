package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/drawmart/drawmart-backend/internal/services"
)

// AuthHandler handles OTP login requests
type AuthHandler struct {
	otp    *services.OTPService
	auth   *services.AuthService
	tokens *services.TokenService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(otp *services.OTPService, auth *services.AuthService, tokens *services.TokenService) *AuthHandler {
	return &AuthHandler{
		otp:    otp,
		auth:   auth,
		tokens: tokens,
	}
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RequestCode handles POST /api/auth/otp/request
func (h *AuthHandler) RequestCode(c *fiber.Ctx) error {
	var req phoneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.otp.RequestCode(req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPhone):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Phone number is required",
			})
		case errors.Is(err, services.ErrRateLimited):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Code requested too recently, try again later",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to send verification code",
			})
		}
	}

	resp := fiber.Map{"message": "Verification code sent"}
	if result.DevCode != "" {
		resp["dev_code"] = result.DevCode
	}
	return c.JSON(resp)
}

// VerifyCode handles POST /api/auth/otp/verify
func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	_, err := h.otp.VerifyCode(req.Phone, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCodeExpired):
			// Distinct so the client can prompt a resend.
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Code expired, request a new one",
			})
		case errors.Is(err, services.ErrTooManyAttempts):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many attempts, request a new code",
			})
		case errors.Is(err, services.ErrInvalidPhone),
			errors.Is(err, services.ErrCodeNotFound),
			errors.Is(err, services.ErrCodeInvalid),
			errors.Is(err, services.ErrCodeAlreadyUsed):
			// One body for wrong code, no code and lost races: nothing here
			// may reveal whether a phone has pending state.
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid code",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Verification failed",
			})
		}
	}

	return c.JSON(fiber.Map{"verified": true})
}

// Login handles POST /api/auth/otp/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req phoneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.auth.LoginWithVerifiedCode(req.Phone, services.LoginMeta{
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPhone):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Phone number is required",
			})
		case errors.Is(err, services.ErrNotVerified):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Code not verified or already used",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Login failed",
			})
		}
	}

	return c.JSON(result)
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Refresh token is required",
		})
	}

	pair, err := h.tokens.Refresh(req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid refresh token",
		})
	}

	return c.JSON(pair)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	profile, err := h.auth.Profile(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.JSON(profile)
}
