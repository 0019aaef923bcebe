package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the isolation boundary for one chat sender. Created lazily on
// first inbound message; ExternalID is the transport-assigned sender id and
// is unique across tenants.
type Tenant struct {
	ID              uuid.UUID `db:"id"`
	ExternalID      string    `db:"external_id"`
	DisplayName     string    `db:"display_name"`
	DefaultCurrency string    `db:"default_currency"`
	CreatedAt       time.Time `db:"created_at"`
}
