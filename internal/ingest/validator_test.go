package ingest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func testTenant() *models.Tenant {
	return &models.Tenant{DefaultCurrency: "INR"}
}

func TestValidateCleanDraft(t *testing.T) {
	v := NewValidator()
	receivedAt := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	occurredAt := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	draft := &models.TransactionDraft{
		Amount:      dec("450"),
		Currency:    "INR",
		Merchant:    "Starbucks",
		Category:    "Coffee",
		OccurredAt:  occurredAt,
		ParseStatus: models.ParseStatusOK,
	}

	validated, vErr := v.Validate(draft, testTenant(), receivedAt)
	require.Nil(t, vErr)
	assert.Equal(t, "450", validated.Amount.String())
	assert.Equal(t, "INR", validated.Currency)
	assert.Equal(t, "Starbucks", validated.Merchant)
	assert.Equal(t, "Coffee", validated.Category)
	assert.Equal(t, occurredAt, validated.OccurredAt)
}

func TestValidateRejectsMissingAmount(t *testing.T) {
	v := NewValidator()
	now := time.Now().UTC()

	cases := []*models.TransactionDraft{
		nil,
		{ParseStatus: models.ParseStatusUnparseable},
		{Amount: nil, ParseStatus: models.ParseStatusOK},
		{Amount: dec("-5"), ParseStatus: models.ParseStatusOK},
	}
	for i, draft := range cases {
		_, vErr := v.Validate(draft, testTenant(), now)
		require.NotNil(t, vErr, "case %d", i)
		assert.Equal(t, CodeMissingAmount, vErr.Code)
	}
}

func TestValidateZeroAmountAccepted(t *testing.T) {
	v := NewValidator()
	draft := &models.TransactionDraft{Amount: dec("0"), Currency: "INR", ParseStatus: models.ParseStatusOK}

	validated, vErr := v.Validate(draft, testTenant(), time.Now().UTC())
	require.Nil(t, vErr)
	assert.True(t, validated.Amount.IsZero())
}

func TestValidateCurrencySentinelFallsBackToTenantDefault(t *testing.T) {
	v := NewValidator()
	draft := &models.TransactionDraft{Amount: dec("100"), Currency: models.CurrencyUnknown, ParseStatus: models.ParseStatusOK}

	validated, vErr := v.Validate(draft, testTenant(), time.Now().UTC())
	require.Nil(t, vErr)
	assert.Equal(t, "INR", validated.Currency)
}

func TestValidateCurrencyFallsBackToTenantDefault(t *testing.T) {
	v := NewValidator()
	draft := &models.TransactionDraft{Amount: dec("100"), Currency: "", ParseStatus: models.ParseStatusOK}

	validated, vErr := v.Validate(draft, testTenant(), time.Now().UTC())
	require.Nil(t, vErr)
	assert.Equal(t, "INR", validated.Currency)
}

func TestValidateUnknownCurrencyWithoutDefault(t *testing.T) {
	v := NewValidator()
	draft := &models.TransactionDraft{Amount: dec("100"), Currency: "XYZ", ParseStatus: models.ParseStatusOK}
	tenant := &models.Tenant{DefaultCurrency: ""}

	_, vErr := v.Validate(draft, tenant, time.Now().UTC())
	require.NotNil(t, vErr)
	assert.Equal(t, CodeUnknownCurrency, vErr.Code)
}

func TestValidateCoercesEmptyFields(t *testing.T) {
	v := NewValidator()
	draft := &models.TransactionDraft{Amount: dec("100"), Currency: "USD", ParseStatus: models.ParseStatusOK}

	validated, vErr := v.Validate(draft, testTenant(), time.Now().UTC())
	require.Nil(t, vErr)
	assert.Equal(t, models.FieldUnknown, validated.Merchant)
	assert.Equal(t, models.FieldUnknown, validated.Category)
}

func TestValidateOccurredAtFallsBackToReceiveTime(t *testing.T) {
	v := NewValidator()
	receivedAt := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	cases := []time.Time{
		{},                                   // missing
		receivedAt.Add(72 * time.Hour),       // far future
		time.Date(199, 1, 1, 0, 0, 0, 0, time.UTC), // misread year
	}
	for i, occurredAt := range cases {
		draft := &models.TransactionDraft{
			Amount:      dec("100"),
			Currency:    "INR",
			OccurredAt:  occurredAt,
			ParseStatus: models.ParseStatusOK,
		}
		validated, vErr := v.Validate(draft, testTenant(), receivedAt)
		require.Nil(t, vErr, "case %d", i)
		assert.Equal(t, receivedAt, validated.OccurredAt, "case %d", i)
	}
}
