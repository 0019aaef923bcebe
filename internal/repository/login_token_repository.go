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
	"go.uber.org/zap"
)

type LoginTokenRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewLoginTokenRepository(db *pgxpool.Pool, logger *zap.Logger) *LoginTokenRepository {
	return &LoginTokenRepository{
		db:     db,
		logger: logger,
	}
}

func (r *LoginTokenRepository) Create(ctx context.Context, token *models.LoginToken) error {
	query := squirrel.Insert("login_tokens").
		Columns("id", "tenant_id", "token", "code_hash", "expires_at", "created_at").
		Values(token.ID, token.TenantID, token.Token, token.CodeHash, token.ExpiresAt, token.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ConsumeByToken atomically consumes a live magic-link token. Returns
// ErrNotFound when the token is unknown, expired, or already consumed.
func (r *LoginTokenRepository) ConsumeByToken(ctx context.Context, token string, now time.Time) (*models.LoginToken, error) {
	upd := squirrel.Update("login_tokens").
		Set("consumed_at", now).
		Where(squirrel.Eq{"token": token}).
		Where(squirrel.Expr("consumed_at IS NULL")).
		Where(squirrel.Gt{"expires_at": now}).
		Suffix("RETURNING id, tenant_id, token, code_hash, expires_at, consumed_at, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := upd.ToSql()
	if err != nil {
		return nil, err
	}

	return scanLoginToken(r.db.QueryRow(ctx, sql, args...))
}

// ActiveByTenant returns the tenant's live tokens, newest first, for OTP
// code comparison.
func (r *LoginTokenRepository) ActiveByTenant(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]*models.LoginToken, error) {
	query := squirrel.Select("id, tenant_id, token, code_hash, expires_at, consumed_at, created_at").
		From("login_tokens").
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.Expr("consumed_at IS NULL")).
		Where(squirrel.Gt{"expires_at": now}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*models.LoginToken
	for rows.Next() {
		token, err := scanLoginToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

// Consume marks a specific token row as used.
func (r *LoginTokenRepository) Consume(ctx context.Context, id uuid.UUID, now time.Time) error {
	upd := squirrel.Update("login_tokens").
		Set("consumed_at", now).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Expr("consumed_at IS NULL")).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := upd.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLoginToken(row pgx.Row) (*models.LoginToken, error) {
	var token models.LoginToken
	err := row.Scan(
		&token.ID, &token.TenantID, &token.Token, &token.CodeHash,
		&token.ExpiresAt, &token.ConsumedAt, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}
