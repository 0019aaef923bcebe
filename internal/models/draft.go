package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ParseStatus string

const (
	// ParseStatusOK means the extraction produced a usable amount.
	ParseStatusOK ParseStatus = "ok"
	// ParseStatusUnparseable means the amount could not be read with
	// confidence; the draft fails closed instead of guessing.
	ParseStatusUnparseable ParseStatus = "unparseable"
)

// TransactionDraft is the unvalidated output of a parser backend. It is
// transient: only the validator may turn it into a Transaction.
type TransactionDraft struct {
	Amount   *decimal.Decimal
	Currency string
	Merchant string
	Category string
	// OccurredAt is best-effort from the document; zero when unknown.
	OccurredAt time.Time
	// RawExtraction keeps the backend's structured payload for audit.
	RawExtraction string
	ParseStatus   ParseStatus
}
