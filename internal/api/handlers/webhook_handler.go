package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/dto"
	"github.com/vundelavamsi/finance-tracker-backend/internal/ingest"
)

// Ingestor decides how a webhook update is acknowledged.
type Ingestor interface {
	Handle(ctx context.Context, update *dto.Update) ingest.AckDecision
}

type WebhookHandler struct {
	ingestor Ingestor
	logger   *zap.Logger
}

func NewWebhookHandler(ingestor Ingestor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingestor: ingestor,
		logger:   logger,
	}
}

// HandleUpdate receives one Telegram webhook delivery. Telegram retries any
// non-2xx response, so only a transient failure maps to 503; everything else
// is acknowledged with 200 to stop redelivery.
func (h *WebhookHandler) HandleUpdate(c *fiber.Ctx) error {
	var update dto.Update
	if err := c.BodyParser(&update); err != nil {
		// Malformed bodies can never become valid on redelivery.
		h.logger.Warn("undecodable webhook body", zap.Error(err))
		return c.JSON(fiber.Map{"ok": true})
	}

	switch h.ingestor.Handle(c.Context(), &update) {
	case ingest.AckRetry:
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"ok":    false,
			"retry": true,
		})
	case ingest.AckProcessing:
		return c.JSON(fiber.Map{
			"ok":     true,
			"status": "processing",
		})
	default:
		return c.JSON(fiber.Map{"ok": true})
	}
}
