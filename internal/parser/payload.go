package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
)

const imagePrompt = `Analyze this image of an invoice, receipt or payment screenshot.
Return ONLY valid JSON, no markdown, no code fences, in exactly this shape:
{
  "merchant": "string or null",
  "amount": number or null,
  "direction": "debit" or "credit" or null,
  "currency": "ISO 4217 code or null",
  "date": "YYYY-MM-DD or null",
  "category": "single word or short phrase guessed from the merchant, e.g. Food, Transport, Coffee, or null"
}
Rules:
- If a field cannot be determined, use null. Never invent an amount.
- "amount" is the total paid as a positive number; use "direction" for expense vs income.
- Receipts and invoices are usually debits.
- "currency" is the ISO code printed or implied by the symbol.`

const textPrompt = `The user is logging a financial transaction in a short chat message.
Return ONLY valid JSON, no markdown, no code fences, in exactly this shape:
{
  "merchant": "string or null",
  "amount": number or null,
  "direction": "debit" or "credit" or null,
  "currency": "ISO 4217 code or null",
  "date": "YYYY-MM-DD or null",
  "category": "single word or short phrase, e.g. Food, Salary, or null"
}
Rules:
- "amount" is a positive number; words like spent, paid, bought mean "debit",
  received, salary, refund mean "credit". If unclear, prefer "debit".
- If no amount can be inferred, use null.
- "date" only when the message states one.

User message: `

// modelPayload is the schema contract both AI backends are prompted for.
// Every field is optional; amount stays raw because models return it as a
// number or a locale-formatted string. The prompts also request a direction
// field so the model reports the amount unsigned; it is kept for audit in
// RawExtraction rather than decoded here.
type modelPayload struct {
	Merchant string          `json:"merchant"`
	Amount   json.RawMessage `json:"amount"`
	Currency string          `json:"currency"`
	Date     string          `json:"date"`
	Category string          `json:"category"`
}

// draftFromModelJSON normalizes a raw model response into a draft. A response
// that is not the contracted JSON object maps to a SCHEMA_MISMATCH error; an
// object with an unreadable amount yields an unparseable draft so the
// validator can reject it explicitly.
func draftFromModelJSON(raw string) (*models.TransactionDraft, error) {
	clean := cleanModelJSON(raw)

	var payload modelPayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, SchemaMismatch(fmt.Errorf("response is not the contracted JSON object: %w (raw: %.200s)", err, raw))
	}

	draft := &models.TransactionDraft{
		Currency:      strings.ToUpper(strings.TrimSpace(sanitizeUTF8(payload.Currency))),
		Merchant:      strings.TrimSpace(sanitizeUTF8(payload.Merchant)),
		Category:      strings.TrimSpace(sanitizeUTF8(payload.Category)),
		RawExtraction: clean,
		ParseStatus:   models.ParseStatusUnparseable,
	}
	if draft.Currency == "" {
		draft.Currency = models.CurrencyUnknown
	}

	if payload.Date != "" {
		if occurred, err := time.Parse("2006-01-02", payload.Date); err == nil {
			draft.OccurredAt = occurred
		}
	}

	if amount := parseAmountValue(payload.Amount); amount != nil {
		abs := amount.Abs()
		draft.Amount = &abs
		draft.ParseStatus = models.ParseStatusOK
	}

	return draft, nil
}

func parseAmountValue(raw json.RawMessage) *decimal.Decimal {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	// Quoted value: the model sent a formatted string like "1,234.50".
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		return normalizeAmount(s)
	}
	return normalizeAmount(trimmed)
}

// cleanModelJSON strips markdown code fences and surrounding prose when the
// model ignored the no-fences instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost JSON object when prose surrounds it.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}

	return s
}
