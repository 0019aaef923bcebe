// Package ingest is the webhook-to-database pipeline: it resolves the
// sending tenant, deduplicates redelivered updates, runs extraction and
// validation, persists exactly one transaction per inbound message and
// replies to the sender.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/dto"
	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
	"github.com/vundelavamsi/finance-tracker-backend/internal/parser"
	"github.com/vundelavamsi/finance-tracker-backend/internal/repository"
)

const usageHint = `Send me a photo of a receipt or invoice and I will track it.
You can also type an expense, e.g. "add 150rs as coffee" or "spent 50 on food".`

type TenantStore interface {
	GetOrCreate(ctx context.Context, externalID, displayName string) (*models.Tenant, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetBySourceMessage(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) (*models.Transaction, error)
}

type AttemptStore interface {
	Begin(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) (bool, models.AttemptState, error)
	MarkSucceeded(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) error
	MarkFailed(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) error
	Release(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) error
}

type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type Service struct {
	tenants      TenantStore
	transactions TransactionStore
	attempts     AttemptStore
	messenger    Messenger
	parser       parser.Parser
	validator    *Validator
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(
	tenants TenantStore,
	transactions TransactionStore,
	attempts AttemptStore,
	messenger Messenger,
	p parser.Parser,
	validator *Validator,
	logger *zap.Logger,
) *Service {
	return &Service{
		tenants:      tenants,
		transactions: transactions,
		attempts:     attempts,
		messenger:    messenger,
		parser:       p,
		validator:    validator,
		logger:       logger,
		now:          time.Now,
	}
}

// Handle processes one webhook update end to end and decides the ack.
// Ordering invariant: the transaction row is committed before the
// confirmation is sent, so a crash can lose a reply but never a record.
func (s *Service) Handle(ctx context.Context, update *dto.Update) AckDecision {
	if update == nil || update.Message == nil || update.Message.From == nil {
		// Edits, channel posts and other non-message updates are ignored.
		return AckOK
	}

	msg := update.Message
	chatID := msg.Chat.ID
	fileID, hasImage := msg.ImageFileID()
	text := msg.Text
	if text == "" {
		// Photo and document messages carry their text as a caption.
		text = msg.Caption
	}

	if !hasImage && text == "" {
		s.reply(ctx, chatID, usageHint)
		return AckOK
	}

	tenant, err := s.tenants.GetOrCreate(ctx, fmt.Sprintf("%d", msg.From.ID), msg.From.DisplayName())
	if err != nil {
		s.logger.Error("tenant resolution failed",
			zap.Int64("sender_id", msg.From.ID),
			zap.Error(err),
		)
		return AckRetry
	}

	logger := s.logger.With(
		zap.String("tenant_id", tenant.ID.String()),
		zap.Int64("source_message_id", msg.MessageID),
	)

	acquired, state, err := s.attempts.Begin(ctx, tenant.ID, msg.MessageID)
	if err != nil {
		logger.Error("attempt ledger begin failed", zap.Error(err))
		return AckRetry
	}
	if !acquired {
		switch state {
		case models.AttemptSucceeded:
			// Redelivery after success: answer with the stored record.
			if tx, err := s.transactions.GetBySourceMessage(ctx, tenant.ID, msg.MessageID); err == nil {
				s.reply(ctx, chatID, confirmationText(tx.Amount, tx.Currency, tx.Merchant, tx.Category))
			}
			return AckOK
		case models.AttemptInProgress:
			logger.Info("update already in progress, acking without work")
			return AckProcessing
		default:
			// A permanent failure was already reported once.
			return AckOK
		}
	}

	return s.process(ctx, logger, tenant, msg, chatID, fileID, hasImage, text)
}

func (s *Service) process(
	ctx context.Context,
	logger *zap.Logger,
	tenant *models.Tenant,
	msg *dto.Message,
	chatID int64,
	fileID string,
	hasImage bool,
	text string,
) AckDecision {
	var draft *models.TransactionDraft
	var err error

	if hasImage {
		s.reply(ctx, chatID, "Processing your document...")

		image, mimeType, dlErr := s.messenger.DownloadFile(ctx, fileID)
		if dlErr != nil {
			logger.Warn("file download failed", zap.Error(dlErr))
			s.release(ctx, logger, tenant.ID, msg.MessageID)
			return AckRetry
		}
		draft, err = s.parser.Extract(ctx, image, mimeType)
		if err != nil && !parser.IsTransient(err) && text != "" {
			// The caption often restates the expense, so try it before
			// reporting an unreadable document.
			logger.Info("image extraction failed, falling back to caption", zap.Error(err))
			draft, err = s.parser.ExtractText(ctx, text)
		}
	} else {
		draft, err = s.parser.ExtractText(ctx, text)
	}

	if err != nil {
		if parser.IsTransient(err) {
			logger.Warn("extraction failed transiently, releasing for redelivery", zap.Error(err))
			s.release(ctx, logger, tenant.ID, msg.MessageID)
			return AckRetry
		}
		logger.Warn("extraction failed permanently", zap.Error(err))
		s.markFailed(ctx, logger, tenant.ID, msg.MessageID)
		s.reply(ctx, chatID, "Sorry, I could not read a transaction from that. Please try a clearer photo or type the expense, e.g. \"add 150rs as coffee\".")
		return AckOK
	}

	validated, vErr := s.validator.Validate(draft, tenant, s.now().UTC())
	if vErr != nil {
		logger.Info("draft rejected by validation",
			zap.String("code", vErr.Code),
			zap.String("reason", vErr.Reason),
		)
		s.markFailed(ctx, logger, tenant.ID, msg.MessageID)
		s.reply(ctx, chatID, failureText(vErr))
		return AckOK
	}

	tx := &models.Transaction{
		ID:              uuid.New(),
		TenantID:        tenant.ID,
		SourceMessageID: msg.MessageID,
		Amount:          validated.Amount,
		Currency:        validated.Currency,
		Merchant:        validated.Merchant,
		Category:        validated.Category,
		OccurredAt:      validated.OccurredAt,
		RawExtraction:   draft.RawExtraction,
		CreatedAt:       s.now().UTC(),
	}

	if err := s.transactions.Create(ctx, tx); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// A concurrent attempt won the race; its row is the record.
			logger.Info("transaction already persisted by concurrent attempt")
			s.markSucceeded(ctx, logger, tenant.ID, msg.MessageID)
			if existing, getErr := s.transactions.GetBySourceMessage(ctx, tenant.ID, msg.MessageID); getErr == nil {
				s.reply(ctx, chatID, confirmationText(existing.Amount, existing.Currency, existing.Merchant, existing.Category))
			}
			return AckOK
		}
		logger.Error("transaction insert failed", zap.Error(err))
		s.release(ctx, logger, tenant.ID, msg.MessageID)
		return AckRetry
	}

	s.markSucceeded(ctx, logger, tenant.ID, msg.MessageID)
	s.reply(ctx, chatID, confirmationText(tx.Amount, tx.Currency, tx.Merchant, tx.Category))

	logger.Info("transaction tracked",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("amount", tx.Amount.String()),
		zap.String("currency", tx.Currency),
	)
	return AckOK
}

func (s *Service) reply(ctx context.Context, chatID int64, text string) {
	if err := s.messenger.SendMessage(ctx, chatID, text); err != nil {
		s.logger.Warn("reply delivery failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (s *Service) release(ctx context.Context, logger *zap.Logger, tenantID uuid.UUID, sourceMessageID int64) {
	if err := s.attempts.Release(ctx, tenantID, sourceMessageID); err != nil {
		logger.Warn("attempt release failed", zap.Error(err))
	}
}

func (s *Service) markFailed(ctx context.Context, logger *zap.Logger, tenantID uuid.UUID, sourceMessageID int64) {
	if err := s.attempts.MarkFailed(ctx, tenantID, sourceMessageID); err != nil {
		logger.Warn("attempt mark failed errored", zap.Error(err))
	}
}

func (s *Service) markSucceeded(ctx context.Context, logger *zap.Logger, tenantID uuid.UUID, sourceMessageID int64) {
	if err := s.attempts.MarkSucceeded(ctx, tenantID, sourceMessageID); err != nil {
		logger.Warn("attempt mark succeeded errored", zap.Error(err))
	}
}

// confirmationText formats the user reply, e.g.
// "Tracked 450 INR at Starbucks (Coffee)".
func confirmationText(amount decimal.Decimal, currency, merchant, category string) string {
	text := fmt.Sprintf("Tracked %s %s", amount.String(), currency)
	if merchant != models.FieldUnknown && merchant != "" {
		text += " at " + merchant
	}
	if category != models.FieldUnknown && category != "" {
		text += " (" + category + ")"
	}
	return text
}

func failureText(vErr *ValidationError) string {
	switch vErr.Code {
	case CodeMissingAmount:
		return "I could not find an amount on that document, so nothing was tracked. Please try a clearer photo or type the expense manually."
	case CodeUnknownCurrency:
		return "I could not recognize the currency, so nothing was tracked. Please type the expense with a currency, e.g. \"add 150 INR as coffee\"."
	default:
		return "Sorry, that transaction could not be tracked: " + vErr.Reason
	}
}
