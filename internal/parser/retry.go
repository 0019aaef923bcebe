package parser

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
)

// Retrying retries transient extraction failures with exponential backoff.
// Permanent and schema-mismatch failures stop immediately.
type Retrying struct {
	inner       Parser
	maxAttempts uint64
	newBackOff  func() backoff.BackOff
	logger      *zap.Logger
}

func NewRetrying(inner Parser, maxAttempts int, logger *zap.Logger) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrying{
		inner:       inner,
		maxAttempts: uint64(maxAttempts),
		newBackOff:  defaultBackOff,
		logger:      logger,
	}
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0
	return bo
}

func (r *Retrying) Extract(ctx context.Context, image []byte, mimeType string) (*models.TransactionDraft, error) {
	return r.do(ctx, func() (*models.TransactionDraft, error) {
		return r.inner.Extract(ctx, image, mimeType)
	})
}

func (r *Retrying) ExtractText(ctx context.Context, text string) (*models.TransactionDraft, error) {
	return r.do(ctx, func() (*models.TransactionDraft, error) {
		return r.inner.ExtractText(ctx, text)
	})
}

func (r *Retrying) do(ctx context.Context, call func() (*models.TransactionDraft, error)) (*models.TransactionDraft, error) {
	var draft *models.TransactionDraft
	attempt := 0

	op := func() error {
		attempt++
		d, err := call()
		if err != nil {
			if IsTransient(err) {
				r.logger.Warn("extraction attempt failed",
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				return err
			}
			return backoff.Permanent(err)
		}
		draft = d
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxAttempts-1), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return draft, nil
}
