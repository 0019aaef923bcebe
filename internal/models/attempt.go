package models

import (
	"time"

	"github.com/google/uuid"
)

type AttemptState string

const (
	AttemptInProgress      AttemptState = "in_progress"
	AttemptSucceeded       AttemptState = "succeeded"
	AttemptFailedPermanent AttemptState = "failed_permanent"
)

// IngestionAttempt is one row of the dedup ledger, keyed by
// (TenantID, SourceMessageID). It prevents a redelivered update from being
// processed while an earlier attempt is running or already succeeded.
type IngestionAttempt struct {
	ID              uuid.UUID    `db:"id"`
	TenantID        uuid.UUID    `db:"tenant_id"`
	SourceMessageID int64        `db:"source_message_id"`
	State           AttemptState `db:"state"`
	StartedAt       time.Time    `db:"started_at"`
	FinishedAt      *time.Time   `db:"finished_at"`
}
