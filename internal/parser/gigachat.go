package parser

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Role1776/gigago"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
	"github.com/vundelavamsi/finance-tracker-backend/pkg/config"
)

const (
	gigachatBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"
	gigachatOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	gigachatModel    = "GigaChat"
)

// GigaChatParser extracts transaction drafts through the GigaChat API.
// Text messages go through the gigago SDK; images need the Files and Vision
// REST endpoints the SDK does not cover, so those are called directly.
type GigaChatParser struct {
	client     *gigago.Client
	model      *gigago.GenerativeModel
	config     *config.GigaChatConfig
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	oauthURL   string

	mu          sync.Mutex
	accessToken string
}

func NewGigaChatParser(ctx context.Context, cfg *config.GigaChatConfig, logger *zap.Logger) (*GigaChatParser, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel(gigachatModel)
	model.Temperature = 0.1

	httpClient := &http.Client{}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	p := &GigaChatParser{
		client:     client,
		model:      model,
		config:     cfg,
		logger:     logger,
		httpClient: httpClient,
		baseURL:    gigachatBaseURL,
		oauthURL:   gigachatOAuthURL,
	}

	token, err := gigachatAccessToken(ctx, p.oauthURL, cfg, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	p.accessToken = token

	return p, nil
}

func (p *GigaChatParser) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

func (p *GigaChatParser) Extract(ctx context.Context, image []byte, mimeType string) (*models.TransactionDraft, error) {
	fileID, err := p.uploadFile(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}

	raw, err := p.visionCompletion(ctx, fileID, imagePrompt)
	if err != nil {
		return nil, err
	}

	return draftFromModelJSON(raw)
}

func (p *GigaChatParser) ExtractText(ctx context.Context, text string) (*models.TransactionDraft, error) {
	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: textPrompt + text},
	}

	resp, err := p.model.Generate(ctx, messages)
	if err != nil {
		p.logger.Warn("gigachat request failed", zap.Error(err))
		return nil, classifyRemoteErr(err)
	}
	if len(resp.Choices) == 0 {
		return nil, SchemaMismatch(fmt.Errorf("empty gigachat response"))
	}

	return draftFromModelJSON(resp.Choices[0].Message.Content)
}

// gigachatAccessToken obtains an OAuth token for the Files and Vision REST
// endpoints. The API key is already Base64-encoded per the GigaChat docs.
func gigachatAccessToken(ctx context.Context, oauthURL string, cfg *config.GigaChatConfig, httpClient *http.Client, logger *zap.Logger) (string, error) {
	formData := url.Values{}
	formData.Set("scope", cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oauthURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create OAuth request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.New().String())
	req.Header.Set("Authorization", "Basic "+cfg.APIKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		logger.Error("OAuth request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(bodyBytes)),
		)
		return "", fmt.Errorf("OAuth failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", fmt.Errorf("failed to decode OAuth response: %w", err)
	}
	if oauthResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in OAuth response")
	}

	return oauthResp.AccessToken, nil
}

func (p *GigaChatParser) token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accessToken
}

func (p *GigaChatParser) setToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessToken = token
}

// doWithAuth sends a bearer-authorized request built by build. GigaChat
// access tokens expire after about 30 minutes, so a 401 triggers one token
// refresh and one retry before the response is handed back to the caller.
func (p *GigaChatParser) doWithAuth(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	send := func() (*http.Response, error) {
		req, err := build()
		if err != nil {
			return nil, Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+p.token())

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, classifyRemoteErr(err)
		}
		return resp, nil
	}

	resp, err := send()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	p.logger.Info("gigachat access token expired, refreshing")
	token, err := gigachatAccessToken(ctx, p.oauthURL, p.config, p.httpClient, p.logger)
	if err != nil {
		// The token can be re-fetched on the next delivery.
		return nil, Transient(fmt.Errorf("token refresh after 401 failed: %w", err))
	}
	p.setToken(token)

	return send()
}

// uploadFile sends the image to the Files endpoint with purpose=general so it
// can be attached to a vision completion.
func (p *GigaChatParser) uploadFile(ctx context.Context, data []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("purpose", "general"); err != nil {
		return "", Permanent(fmt.Errorf("failed to write purpose field: %w", err))
	}

	fileName := "document" + extensionForMIME(mimeType)
	part, err := writer.CreatePart(map[string][]string{
		"Content-Type":        {mimeType},
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)},
	})
	if err != nil {
		return "", Permanent(fmt.Errorf("failed to create form file: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return "", Permanent(fmt.Errorf("failed to write file: %w", err))
	}
	if err := writer.Close(); err != nil {
		return "", Permanent(fmt.Errorf("failed to close writer: %w", err))
	}
	payload := body.Bytes()
	contentType := writer.FormDataContentType()

	resp, err := p.doWithAuth(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/files", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", classifyStatus(resp.StatusCode, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", Permanent(fmt.Errorf("failed to decode upload response: %w", err))
	}

	p.logger.Debug("file uploaded to gigachat", zap.String("file_id", uploadResp.ID))
	return uploadResp.ID, nil
}

// visionCompletion asks the chat completions endpoint about an uploaded file.
// Attachments are an array of arrays: [["file_id"]].
func (p *GigaChatParser) visionCompletion(ctx context.Context, fileID, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"model": gigachatModel,
		"messages": []map[string]interface{}{
			{
				"role":        "user",
				"content":     prompt,
				"attachments": [][]string{{fileID}},
			},
		},
		"temperature": 0.1,
		"stream":      false,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	resp, err := p.doWithAuth(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", classifyStatus(resp.StatusCode, fmt.Errorf("vision API failed with status %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var visionResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&visionResp); err != nil {
		return "", Permanent(fmt.Errorf("failed to decode vision response: %w", err))
	}
	if len(visionResp.Choices) == 0 {
		return "", SchemaMismatch(fmt.Errorf("no choices in vision response"))
	}

	return strings.TrimSpace(visionResp.Choices[0].Message.Content), nil
}

func extensionForMIME(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
