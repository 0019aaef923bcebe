package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
)

// TextCommandParser handles short expense commands like "add 15rs as coffee",
// "spent 50 on food" or "₹120 groceries" without calling an AI backend.
type TextCommandParser struct{}

var (
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(?:rs|rupees?|inr|₹)`),
		regexp.MustCompile(`₹\s*(\d+\.?\d*)`),
		regexp.MustCompile(`(\d+\.?\d*)`),
	}
	leadingNumber  = regexp.MustCompile(`^(\d+\.?\d*)`)
	fieldSeparator = regexp.MustCompile(`[,\s]+`)
)

var (
	commandPrefixes   = []string{"add", "spent", "spend", "paid", "expense", "exp"}
	commandConnectors = []string{"as", "for", "on", "at", "to", "from"}
)

func NewTextCommandParser() *TextCommandParser {
	return &TextCommandParser{}
}

// Extract is not supported; text commands carry no image.
func (p *TextCommandParser) Extract(ctx context.Context, image []byte, mimeType string) (*models.TransactionDraft, error) {
	return nil, Permanent(fmt.Errorf("text command parser cannot read images"))
}

func (p *TextCommandParser) ExtractText(ctx context.Context, text string) (*models.TransactionDraft, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil, SchemaMismatch(fmt.Errorf("empty message"))
	}

	for _, prefix := range commandPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}

	var amountStr string
	remaining := text
	for _, pattern := range amountPatterns {
		loc := pattern.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		amountStr = text[loc[2]:loc[3]]
		remaining = strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
		break
	}
	if amountStr == "" {
		if m := leadingNumber.FindString(text); m != "" {
			amountStr = m
			remaining = strings.TrimSpace(text[len(m):])
		}
	}

	amount := normalizeAmount(amountStr)
	if amount == nil {
		return nil, SchemaMismatch(fmt.Errorf("no amount in message"))
	}

	for _, connector := range commandConnectors {
		if strings.HasPrefix(remaining, connector+" ") {
			remaining = strings.TrimSpace(strings.TrimPrefix(remaining, connector))
		}
	}

	draft := &models.TransactionDraft{
		Amount:        amount,
		Currency:      "INR",
		RawExtraction: text,
		ParseStatus:   models.ParseStatusOK,
	}

	if remaining != "" {
		parts := fieldSeparator.Split(remaining, 2)
		draft.Category = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			draft.Merchant = strings.TrimSpace(parts[1])
		}
	}
	if draft.Category == "" {
		draft.Category = "Uncategorized"
	}

	return draft, nil
}

// WithTextCommands wraps a parser so that recognizable expense commands are
// handled locally and everything else falls through to the AI backend.
type WithTextCommands struct {
	commands *TextCommandParser
	fallback Parser
}

func NewWithTextCommands(fallback Parser) *WithTextCommands {
	return &WithTextCommands{
		commands: NewTextCommandParser(),
		fallback: fallback,
	}
}

func (p *WithTextCommands) Extract(ctx context.Context, image []byte, mimeType string) (*models.TransactionDraft, error) {
	return p.fallback.Extract(ctx, image, mimeType)
}

func (p *WithTextCommands) ExtractText(ctx context.Context, text string) (*models.TransactionDraft, error) {
	if draft, err := p.commands.ExtractText(ctx, text); err == nil {
		return draft, nil
	}
	return p.fallback.ExtractText(ctx, text)
}
