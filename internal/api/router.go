package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/api/handlers"
	"github.com/vundelavamsi/finance-tracker-backend/pkg/auth"
	"github.com/vundelavamsi/finance-tracker-backend/pkg/middleware"
)

func SetupRouter(
	webhookHandler *handlers.WebhookHandler,
	authHandler *handlers.AuthHandler,
	txHandler *handlers.TransactionHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
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
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Chat-bot webhook (authenticated by URL secrecy, as Telegram does)
	app.Post("/webhook/telegram", webhookHandler.HandleUpdate)

	// Auth routes (public)
	authGroup := app.Group("/api/auth")
	authGroup.Post("/login-by-telegram", authHandler.RequestLogin)
	authGroup.Post("/verify", authHandler.VerifyLogin)
	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))
	protected.Get("/transactions", txHandler.List)
	protected.Get("/transactions/summary", txHandler.Summary)

	return app
}
