package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrencyUnknown is the explicit sentinel an extraction carries when no
// currency could be determined. The validator substitutes the tenant default
// for it, or rejects the draft when no default is configured.
const CurrencyUnknown = "UNKNOWN"

// FieldUnknown is the sentinel stored for merchant/category when the
// extraction left them empty, so downstream formatting never branches on
// missing fields.
const FieldUnknown = "Unknown"

// Transaction is a persisted, immutable expense record. The pair
// (TenantID, SourceMessageID) is unique so a redelivered update can never
// produce a second row.
type Transaction struct {
	ID              uuid.UUID       `db:"id"`
	TenantID        uuid.UUID       `db:"tenant_id"`
	SourceMessageID int64           `db:"source_message_id"`
	Amount          decimal.Decimal `db:"amount"`
	Currency        string          `db:"currency"`
	Merchant        string          `db:"merchant"`
	Category        string          `db:"category"`
	OccurredAt      time.Time       `db:"occurred_at"`
	RawExtraction   string          `db:"raw_extraction"`
	CreatedAt       time.Time       `db:"created_at"`
}
