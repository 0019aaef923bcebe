package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
)

func TestTextCommandParser(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		amount   string
		category string
		merchant string
	}{
		{"add with rs suffix", "add 15rs as coffee", "15", "coffee", ""},
		{"bare amount and word", "15 coffee", "15", "coffee", ""},
		{"rupee symbol", "₹15 coffee", "15", "coffee", ""},
		{"spent on", "spent 50 on food", "50", "food", ""},
		{"inr suffix", "120 inr groceries", "120", "groceries", ""},
		{"decimal amount", "paid 99.50 for lunch", "99.5", "lunch", ""},
		{"category and merchant", "add 450 as coffee starbucks", "450", "coffee", "starbucks"},
		{"amount only", "200", "200", "Uncategorized", ""},
	}

	p := NewTextCommandParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := p.ExtractText(context.Background(), tt.input)
			require.NoError(t, err)

			require.NotNil(t, draft.Amount)
			assert.Equal(t, tt.amount, draft.Amount.String())
			assert.Equal(t, "INR", draft.Currency)
			assert.Equal(t, tt.category, draft.Category)
			assert.Equal(t, tt.merchant, draft.Merchant)
			assert.Equal(t, models.ParseStatusOK, draft.ParseStatus)
		})
	}
}

func TestTextCommandParserRejectsNonCommands(t *testing.T) {
	p := NewTextCommandParser()
	for _, input := range []string{"", "   ", "hello there", "what did I spend last week?"} {
		_, err := p.ExtractText(context.Background(), input)
		require.Error(t, err, "input %q", input)
		assert.False(t, IsTransient(err))
	}
}

func TestTextCommandParserCannotReadImages(t *testing.T) {
	p := NewTextCommandParser()
	_, err := p.Extract(context.Background(), []byte("img"), "image/jpeg")
	require.Error(t, err)
}

func TestWithTextCommandsFallsBackToAI(t *testing.T) {
	fallback := &NullParser{Draft: &models.TransactionDraft{ParseStatus: models.ParseStatusOK}}
	p := NewWithTextCommands(fallback)

	// Not a recognizable command: goes to the AI backend.
	draft, err := p.ExtractText(context.Background(), "I bought some things at the market yesterday")
	require.NoError(t, err)
	assert.NotNil(t, draft)
	assert.Equal(t, 1, fallback.ExtractTextCalls)

	// Recognizable command: handled locally, AI never called.
	draft, err = p.ExtractText(context.Background(), "add 15rs as coffee")
	require.NoError(t, err)
	assert.Equal(t, "15", draft.Amount.String())
	assert.Equal(t, 1, fallback.ExtractTextCalls)
}

func TestWithTextCommandsDelegatesImages(t *testing.T) {
	fallback := &NullParser{Err: Transient(errors.New("503"))}
	p := NewWithTextCommands(fallback)

	_, err := p.Extract(context.Background(), []byte("img"), "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, 1, fallback.ExtractCalls)
}
