package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// normalizeAmount parses a locale-formatted amount string: currency symbols,
// thousands separators and decimal commas are tolerated. Returns nil when the
// value cannot be read unambiguously, so the draft fails closed as
// unparseable instead of guessing.
func normalizeAmount(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	neg := strings.HasPrefix(s, "-") || strings.HasPrefix(s, "−")

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	t := b.String()
	if t == "" {
		return nil
	}

	dot := strings.LastIndex(t, ".")
	comma := strings.LastIndex(t, ",")
	switch {
	case dot >= 0 && comma >= 0:
		// The rightmost separator is the decimal point.
		if dot > comma {
			t = strings.ReplaceAll(t, ",", "")
		} else {
			t = strings.ReplaceAll(t, ".", "")
			t = strings.Replace(t, ",", ".", 1)
		}
	case comma >= 0:
		// A single comma followed by exactly three digits reads as a
		// thousands separator; anything else as a decimal comma.
		if strings.Count(t, ",") == 1 && len(t)-comma-1 != 3 {
			t = strings.Replace(t, ",", ".", 1)
		} else {
			t = strings.ReplaceAll(t, ",", "")
		}
	}

	d, err := decimal.NewFromString(t)
	if err != nil {
		return nil
	}
	if neg {
		d = d.Neg()
	}
	return &d
}

// sanitizeUTF8 removes invalid UTF-8 sequences so model output never breaks
// PostgreSQL text encoding.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}

	return result.String()
}
