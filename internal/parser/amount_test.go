package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain integer", "450", "450"},
		{"plain decimal", "450.50", "450.5"},
		{"currency symbol", "₹450", "450"},
		{"dollar prefix", "$1250.00", "1250"},
		{"thousands comma", "1,250.75", "1250.75"},
		{"thousands only", "1,250", "1250"},
		{"multiple thousands", "1,234,567", "1234567"},
		{"decimal comma", "450,50", "450.5"},
		{"european format", "1.250,75", "1250.75"},
		{"spaces around", "  450  ", "450"},
		{"negative sign", "-450", "-450"},
		{"unicode minus", "−450", "-450"},
		{"suffix text", "450 INR", "450"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeAmount(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNormalizeAmountFailsClosed(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "₹", "..", ",,"} {
		assert.Nil(t, normalizeAmount(input), "input %q should not parse", input)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "Starbucks", sanitizeUTF8("Starbucks"))
	assert.Equal(t, "caf", sanitizeUTF8("caf\xff"))
	assert.Equal(t, "кафе", sanitizeUTF8("кафе"))
}
