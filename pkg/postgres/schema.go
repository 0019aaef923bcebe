package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Schema statements are idempotent so Migrate can run on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id UUID PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		default_currency TEXT NOT NULL DEFAULT 'INR',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		source_message_id BIGINT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		merchant TEXT NOT NULL,
		category TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		raw_extraction TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (tenant_id, source_message_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_tenant_occurred
		ON transactions (tenant_id, occurred_at DESC)`,
	`CREATE TABLE IF NOT EXISTS ingestion_attempts (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		source_message_id BIGINT NOT NULL,
		state TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		UNIQUE (tenant_id, source_message_id)
	)`,
	`CREATE TABLE IF NOT EXISTS login_tokens (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		code_hash TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		consumed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema. Statements only create objects that do not
// exist yet, mirroring a fresh-install bootstrap.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	logger.Info("Database schema up to date")
	return nil
}
