package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/dto"
	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
	"github.com/vundelavamsi/finance-tracker-backend/internal/repository"
)

// TransactionService is the read side for the dashboard API. Writes only
// happen through the ingestion pipeline.
type TransactionService struct {
	txRepo *repository.TransactionRepository
	logger *zap.Logger
}

func NewTransactionService(txRepo *repository.TransactionRepository, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		txRepo: txRepo,
		logger: logger,
	}
}

func (s *TransactionService) List(ctx context.Context, tenantID uuid.UUID, filter repository.TransactionFilter) ([]dto.TransactionResponse, error) {
	transactions, err := s.txRepo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		responses = append(responses, toTransactionResponse(tx))
	}
	return responses, nil
}

func (s *TransactionService) Summary(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) (*dto.SummaryResponse, error) {
	totals, err := s.txRepo.SumByCategory(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}

	resp := &dto.SummaryResponse{
		Totals: make([]dto.CategoryTotal, 0, len(totals)),
	}
	for _, total := range totals {
		resp.Totals = append(resp.Totals, dto.CategoryTotal{
			Category: total.Category,
			Currency: total.Currency,
			Total:    total.Total.String(),
			Count:    total.Count,
		})
	}
	return resp, nil
}

func toTransactionResponse(tx *models.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:         tx.ID.String(),
		Amount:     tx.Amount.String(),
		Currency:   tx.Currency,
		Merchant:   tx.Merchant,
		Category:   tx.Category,
		OccurredAt: tx.OccurredAt.Format(time.RFC3339),
		CreatedAt:  tx.CreatedAt.Format(time.RFC3339),
	}
}
