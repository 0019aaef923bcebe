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

const tenantColumns = "id, external_id, display_name, default_currency, created_at"

type TenantRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTenantRepository(db *pgxpool.Pool, logger *zap.Logger) *TenantRepository {
	return &TenantRepository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreate resolves the tenant owning the given external sender id,
// creating it on first contact. Safe under concurrent first contact: a
// uniqueness-violation race on insert falls back to a re-select instead of
// locking.
func (r *TenantRepository) GetOrCreate(ctx context.Context, externalID, displayName string) (*models.Tenant, error) {
	tenant, err := r.GetByExternalID(ctx, externalID)
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	tenant = &models.Tenant{
		ID:              uuid.New(),
		ExternalID:      externalID,
		DisplayName:     displayName,
		DefaultCurrency: "INR",
		CreatedAt:       time.Now(),
	}

	query := squirrel.Insert("tenants").
		Columns("id", "external_id", "display_name", "default_currency", "created_at").
		Values(tenant.ID, tenant.ExternalID, tenant.DisplayName, tenant.DefaultCurrency, tenant.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	if _, err = r.db.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			// Lost the first-contact race; the winner's row is authoritative.
			return r.GetByExternalID(ctx, externalID)
		}
		return nil, err
	}

	r.logger.Info("Created tenant",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("external_id", externalID),
	)
	return tenant, nil
}

func (r *TenantRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Tenant, error) {
	query := squirrel.Select(tenantColumns).
		From("tenants").
		Where(squirrel.Eq{"external_id": externalID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var tenant models.Tenant
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&tenant.ID, &tenant.ExternalID, &tenant.DisplayName, &tenant.DefaultCurrency, &tenant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &tenant, nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := squirrel.Select(tenantColumns).
		From("tenants").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var tenant models.Tenant
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&tenant.ID, &tenant.ExternalID, &tenant.DisplayName, &tenant.DefaultCurrency, &tenant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &tenant, nil
}
