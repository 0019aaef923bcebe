package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginToken is a one-time credential for the magic-link / OTP login flow.
// Token is the opaque magic-link value; CodeHash is a bcrypt hash of the
// short numeric code delivered over the chat transport.
type LoginToken struct {
	ID         uuid.UUID  `db:"id"`
	TenantID   uuid.UUID  `db:"tenant_id"`
	Token      string     `db:"token"`
	CodeHash   string     `db:"code_hash"`
	ExpiresAt  time.Time  `db:"expires_at"`
	ConsumedAt *time.Time `db:"consumed_at"`
	CreatedAt  time.Time  `db:"created_at"`
}
