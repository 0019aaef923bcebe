package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/repository"
	"github.com/vundelavamsi/finance-tracker-backend/internal/service"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type TransactionHandler struct {
	txService *service.TransactionService
	logger    *zap.Logger
}

func NewTransactionHandler(txService *service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		txService: txService,
		logger:    logger,
	}
}

// List returns the authenticated tenant's transactions, newest first.
// Query params: category, from, to (RFC3339 or YYYY-MM-DD), limit, offset.
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	tenantID, err := tenantIDFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	filter := repository.TransactionFilter{
		Category: c.Query("category"),
		Limit:    defaultPageSize,
	}
	if limit, err := strconv.ParseUint(c.Query("limit", ""), 10, 64); err == nil && limit > 0 {
		if limit > maxPageSize {
			limit = maxPageSize
		}
		filter.Limit = limit
	}
	if offset, err := strconv.ParseUint(c.Query("offset", ""), 10, 64); err == nil {
		filter.Offset = offset
	}

	var badTime bool
	filter.From, badTime = parseTimeQuery(c.Query("from"))
	if badTime {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid 'from' timestamp",
		})
	}
	filter.To, badTime = parseTimeQuery(c.Query("to"))
	if badTime {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid 'to' timestamp",
		})
	}

	transactions, err := h.txService.List(c.Context(), tenantID, filter)
	if err != nil {
		h.logger.Error("Transaction list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list transactions",
		})
	}

	return c.JSON(fiber.Map{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// Summary returns per-category spending totals for the authenticated tenant.
func (h *TransactionHandler) Summary(c *fiber.Ctx) error {
	tenantID, err := tenantIDFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	from, badTime := parseTimeQuery(c.Query("from"))
	if badTime {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid 'from' timestamp",
		})
	}
	to, badTime := parseTimeQuery(c.Query("to"))
	if badTime {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid 'to' timestamp",
		})
	}

	summary, err := h.txService.Summary(c.Context(), tenantID, from, to)
	if err != nil {
		h.logger.Error("Summary query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build summary",
		})
	}

	return c.JSON(summary)
}

func tenantIDFromContext(c *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := c.Locals("tenantID").(string)
	return uuid.Parse(raw)
}

func parseTimeQuery(value string) (*time.Time, bool) {
	if value == "" {
		return nil, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, false
		}
	}
	return nil, true
}
