package parser

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
	"github.com/vundelavamsi/finance-tracker-backend/pkg/config"
)

// GeminiParser extracts transaction drafts with the Gemini multimodal API.
type GeminiParser struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiParser(ctx context.Context, cfg *config.GeminiConfig, logger *zap.Logger) (*GeminiParser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{
			APIVersion: "v1",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiParser{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

func (p *GeminiParser) Extract(ctx context.Context, image []byte, mimeType string) (*models.TransactionDraft, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: imagePrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			},
		},
	}

	return p.generate(ctx, contents)
}

func (p *GeminiParser) ExtractText(ctx context.Context, text string) (*models.TransactionDraft, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: textPrompt + text},
			},
		},
	}

	return p.generate(ctx, contents)
}

func (p *GeminiParser) generate(ctx context.Context, contents []*genai.Content) (*models.TransactionDraft, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		p.logger.Warn("gemini request failed", zap.Error(err))
		return nil, classifyRemoteErr(err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, SchemaMismatch(fmt.Errorf("empty gemini response"))
	}

	draft, err := draftFromModelJSON(raw)
	if err != nil {
		p.logger.Warn("gemini response did not match schema", zap.String("raw", raw))
		return nil, err
	}
	return draft, nil
}
