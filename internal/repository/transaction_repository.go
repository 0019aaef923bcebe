package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const transactionColumns = "id, tenant_id, source_message_id, amount, currency, merchant, category, occurred_at, raw_extraction, created_at"

// TransactionFilter narrows List results. All queries remain scoped to one
// tenant regardless of the filter.
type TransactionFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
	Limit    uint64
	Offset   uint64
}

// CategoryTotal is one row of the per-category spending summary.
type CategoryTotal struct {
	Category string
	Currency string
	Total    decimal.Decimal
	Count    int64
}

type TransactionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a transaction. Returns ErrConflict when a row for the same
// (tenant_id, source_message_id) already exists; the unique constraint is the
// backstop for redelivered updates even if application-level dedup raced.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := squirrel.Insert("transactions").
		Columns("id", "tenant_id", "source_message_id", "amount", "currency", "merchant", "category", "occurred_at", "raw_extraction", "created_at").
		Values(tx.ID, tx.TenantID, tx.SourceMessageID, tx.Amount.String(), tx.Currency, tx.Merchant, tx.Category, tx.OccurredAt, tx.RawExtraction, tx.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err = r.db.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (r *TransactionRepository) GetBySourceMessage(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) (*models.Transaction, error) {
	query := squirrel.Select(transactionColumns).
		From("transactions").
		Where(squirrel.Eq{"tenant_id": tenantID, "source_message_id": sourceMessageID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	return scanTransaction(r.db.QueryRow(ctx, sql, args...))
}

// List returns the tenant's transactions, newest first.
func (r *TransactionRepository) List(ctx context.Context, tenantID uuid.UUID, filter TransactionFilter) ([]*models.Transaction, error) {
	query := squirrel.Select(transactionColumns).
		From("transactions").
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("occurred_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if filter.Category != "" {
		query = query.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"occurred_at": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.LtOrEq{"occurred_at": *filter.To})
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// SumByCategory aggregates the tenant's spending per (category, currency).
func (r *TransactionRepository) SumByCategory(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]CategoryTotal, error) {
	query := squirrel.Select("category", "currency", "COALESCE(SUM(amount::numeric), 0)::text", "COUNT(*)").
		From("transactions").
		Where(squirrel.Eq{"tenant_id": tenantID}).
		GroupBy("category", "currency").
		OrderBy("category ASC").
		PlaceholderFormat(squirrel.Dollar)

	if from != nil {
		query = query.Where(squirrel.GtOrEq{"occurred_at": *from})
	}
	if to != nil {
		query = query.Where(squirrel.LtOrEq{"occurred_at": *to})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var t CategoryTotal
		var totalStr string
		if err := rows.Scan(&t.Category, &t.Currency, &totalStr, &t.Count); err != nil {
			return nil, err
		}
		if t.Total, err = decimal.NewFromString(totalStr); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
	var amountStr string
	err := row.Scan(
		&tx.ID, &tx.TenantID, &tx.SourceMessageID, &amountStr, &tx.Currency,
		&tx.Merchant, &tx.Category, &tx.OccurredAt, &tx.RawExtraction, &tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if tx.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, err
	}
	return &tx, nil
}
