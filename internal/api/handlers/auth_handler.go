package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/dto"
	"github.com/vundelavamsi/finance-tracker-backend/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RequestLogin sends a one-time login code to the user over Telegram.
func (h *AuthHandler) RequestLogin(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil || req.TelegramID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.authService.RequestLogin(c.Context(), &req)
	if err != nil {
		if err == service.ErrTenantNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No account for this Telegram ID. Message the bot first.",
			})
		}
		h.logger.Error("Login request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Login request failed",
		})
	}

	return c.JSON(resp)
}

// VerifyLogin exchanges a magic-link token or Telegram ID plus code for JWTs.
func (h *AuthHandler) VerifyLogin(c *fiber.Ctx) error {
	var req dto.VerifyLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.authService.VerifyLogin(c.Context(), &req)
	if err != nil {
		if err == service.ErrInvalidCredentials || err == service.ErrTenantNotFound {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired login code",
			})
		}
		h.logger.Error("Login verification failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Login verification failed",
		})
	}

	return c.JSON(resp)
}

// RefreshToken exchanges a valid refresh token for a new JWT pair.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.authService.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		if err == service.ErrInvalidCredentials || err == service.ErrTenantNotFound {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid refresh token",
			})
		}
		h.logger.Error("Token refresh failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Token refresh failed",
		})
	}

	return c.JSON(resp)
}
