// Package parser turns receipt images and short text commands into
// transaction drafts. The Parser interface is the seam that lets the
// extraction backend change without touching the ingestion controller.
package parser

import (
	"context"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
)

type Parser interface {
	// Extract reads a payment/invoice image into a draft.
	Extract(ctx context.Context, image []byte, mimeType string) (*models.TransactionDraft, error)
	// ExtractText reads a short message like "spent 50 on food" into a draft.
	ExtractText(ctx context.Context, text string) (*models.TransactionDraft, error)
}
