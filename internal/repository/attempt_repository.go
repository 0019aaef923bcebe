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

// staleAfter is how long an in-progress attempt may sit before a redelivery
// is allowed to take it over. Covers crashes between claim and outcome.
const staleAfter = 2 * time.Minute

type AttemptRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAttemptRepository(db *pgxpool.Pool, logger *zap.Logger) *AttemptRepository {
	return &AttemptRepository{
		db:     db,
		logger: logger,
	}
}

// Begin claims the (tenant, source message) key in the dedup ledger.
// acquired is true when the caller owns the attempt and must drive it to an
// outcome; otherwise state reports what happened to the earlier attempt.
// A stale in-progress row (crashed pipeline) is taken over atomically.
func (r *AttemptRepository) Begin(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) (acquired bool, state models.AttemptState, err error) {
	now := time.Now()

	insert := squirrel.Insert("ingestion_attempts").
		Columns("id", "tenant_id", "source_message_id", "state", "started_at").
		Values(uuid.New(), tenantID, sourceMessageID, models.AttemptInProgress, now).
		Suffix("ON CONFLICT (tenant_id, source_message_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := insert.ToSql()
	if err != nil {
		return false, "", err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, "", err
	}
	if tag.RowsAffected() == 1 {
		return true, models.AttemptInProgress, nil
	}

	// The key is already claimed; inspect the existing attempt.
	sel := squirrel.Select("state", "started_at").
		From("ingestion_attempts").
		Where(squirrel.Eq{"tenant_id": tenantID, "source_message_id": sourceMessageID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err = sel.ToSql()
	if err != nil {
		return false, "", err
	}

	var startedAt time.Time
	if err = r.db.QueryRow(ctx, sql, args...).Scan(&state, &startedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Row vanished between insert and select; treat as in progress,
			// the transport will redeliver.
			return false, models.AttemptInProgress, nil
		}
		return false, "", err
	}

	if state != models.AttemptInProgress || startedAt.After(now.Add(-staleAfter)) {
		return false, state, nil
	}

	// Stale claim: the previous pipeline likely died. Take over, guarded by
	// the observed started_at so only one redelivery wins.
	upd := squirrel.Update("ingestion_attempts").
		Set("started_at", now).
		Where(squirrel.Eq{
			"tenant_id":         tenantID,
			"source_message_id": sourceMessageID,
			"state":             models.AttemptInProgress,
			"started_at":        startedAt,
		}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err = upd.ToSql()
	if err != nil {
		return false, "", err
	}

	tag, err = r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, "", err
	}
	if tag.RowsAffected() == 1 {
		r.logger.Warn("Took over stale ingestion attempt",
			zap.String("tenant_id", tenantID.String()),
			zap.Int64("source_message_id", sourceMessageID),
		)
		return true, models.AttemptInProgress, nil
	}

	return false, models.AttemptInProgress, nil
}

func (r *AttemptRepository) MarkSucceeded(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) error {
	return r.finish(ctx, tenantID, sourceMessageID, models.AttemptSucceeded)
}

func (r *AttemptRepository) MarkFailed(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) error {
	return r.finish(ctx, tenantID, sourceMessageID, models.AttemptFailedPermanent)
}

// Release drops an in-progress claim after a transient failure so the next
// redelivery starts a fresh attempt.
func (r *AttemptRepository) Release(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) error {
	del := squirrel.Delete("ingestion_attempts").
		Where(squirrel.Eq{
			"tenant_id":         tenantID,
			"source_message_id": sourceMessageID,
			"state":             models.AttemptInProgress,
		}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := del.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *AttemptRepository) finish(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64, state models.AttemptState) error {
	upd := squirrel.Update("ingestion_attempts").
		Set("state", state).
		Set("finished_at", time.Now()).
		Where(squirrel.Eq{"tenant_id": tenantID, "source_message_id": sourceMessageID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := upd.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
