package parser

import (
	"context"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
)

// NullParser returns fixed drafts or errors. Test double. ExtractText answers
// with TextDraft/TextErr when either is set, otherwise with Draft/Err.
type NullParser struct {
	Draft *models.TransactionDraft
	Err   error

	TextDraft *models.TransactionDraft
	TextErr   error

	ExtractCalls     int
	ExtractTextCalls int
}

func (p *NullParser) Extract(ctx context.Context, image []byte, mimeType string) (*models.TransactionDraft, error) {
	p.ExtractCalls++
	return p.Draft, p.Err
}

func (p *NullParser) ExtractText(ctx context.Context, text string) (*models.TransactionDraft, error) {
	p.ExtractTextCalls++
	if p.TextDraft != nil || p.TextErr != nil {
		return p.TextDraft, p.TextErr
	}
	return p.Draft, p.Err
}
