package ingest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
)

const (
	CodeMissingAmount   = "MISSING_AMOUNT"
	CodeUnknownCurrency = "UNKNOWN_CURRENCY"
)

// ValidationError is a final, user-reportable rejection of a draft.
type ValidationError struct {
	Code   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// knownCurrencies is the accept list for extracted currency codes. Codes
// outside it fall back to the tenant default rather than being stored as-is.
var knownCurrencies = map[string]struct{}{
	"INR": {}, "USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "CNY": {},
	"RUB": {}, "AUD": {}, "CAD": {}, "CHF": {}, "SGD": {}, "AED": {},
	"HKD": {}, "KRW": {}, "BRL": {}, "MXN": {}, "ZAR": {}, "SEK": {},
	"NOK": {}, "DKK": {}, "PLN": {}, "THB": {}, "IDR": {}, "MYR": {},
	"PHP": {}, "VND": {}, "TRY": {}, "NZD": {}, "ILS": {}, "SAR": {},
}

// maxFutureSkew bounds how far in the future an extracted date may be before
// it is treated as a misread and replaced with the receive time.
const maxFutureSkew = 48 * time.Hour

// earliestPlausible rejects obviously misread dates like year 0200.
var earliestPlausible = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// ValidatedTransaction is a draft that passed every rule and is ready to
// persist. Every field is concrete; sentinels fill what extraction missed.
type ValidatedTransaction struct {
	Amount     decimal.Decimal
	Currency   string
	Merchant   string
	Category   string
	OccurredAt time.Time
}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate is total over drafts: every draft either becomes a
// ValidatedTransaction or a ValidationError, never a partial write.
func (v *Validator) Validate(draft *models.TransactionDraft, tenant *models.Tenant, receivedAt time.Time) (*ValidatedTransaction, *ValidationError) {
	if draft == nil || draft.ParseStatus != models.ParseStatusOK || draft.Amount == nil {
		return nil, &ValidationError{
			Code:   CodeMissingAmount,
			Reason: "no amount could be read from the message",
		}
	}
	if draft.Amount.IsNegative() {
		return nil, &ValidationError{
			Code:   CodeMissingAmount,
			Reason: "extracted amount is negative",
		}
	}

	currency := draft.Currency
	if _, ok := knownCurrencies[currency]; !ok {
		currency = tenant.DefaultCurrency
		if _, ok := knownCurrencies[currency]; !ok {
			return nil, &ValidationError{
				Code:   CodeUnknownCurrency,
				Reason: "no recognizable currency on the document or tenant",
			}
		}
	}

	merchant := draft.Merchant
	if merchant == "" {
		merchant = models.FieldUnknown
	}
	category := draft.Category
	if category == "" {
		category = models.FieldUnknown
	}

	occurredAt := draft.OccurredAt
	if occurredAt.IsZero() || occurredAt.Before(earliestPlausible) || occurredAt.After(receivedAt.Add(maxFutureSkew)) {
		occurredAt = receivedAt
	}

	return &ValidatedTransaction{
		Amount:     *draft.Amount,
		Currency:   currency,
		Merchant:   merchant,
		Category:   category,
		OccurredAt: occurredAt,
	}, nil
}
