// Package telegram is a minimal Bot API client covering the two calls the
// bot needs: sending chat messages and downloading file content.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/pkg/config"
)

type Client struct {
	token       string
	apiBaseURL  string
	fileBaseURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewClient(cfg *config.TelegramConfig, logger *zap.Logger) *Client {
	return &Client{
		token:       cfg.BotToken,
		apiBaseURL:  strings.TrimRight(cfg.APIBaseURL, "/"),
		fileBaseURL: strings.TrimRight(cfg.FileBaseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// SendMessage posts a plain-text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sendMessage payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBaseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode sendMessage response: %w", err)
	}
	if !apiResp.OK {
		c.logger.Warn("sendMessage rejected",
			zap.Int64("chat_id", chatID),
			zap.Int("status", resp.StatusCode),
			zap.String("description", apiResp.Description),
		)
		return fmt.Errorf("sendMessage failed with status %d: %s", resp.StatusCode, apiResp.Description)
	}

	return nil
}

// DownloadFile resolves a file ID through getFile and fetches its content.
// Returns the raw bytes and the MIME type guessed from the file path.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	filePath, err := c.getFilePath(ctx, fileID)
	if err != nil {
		return nil, "", err
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.fileBaseURL, c.token, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("file download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("file download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file content: %w", err)
	}

	return data, mimeTypeForPath(filePath, data), nil
}

func (c *Client) getFilePath(ctx context.Context, fileID string) (string, error) {
	payload, err := json.Marshal(map[string]string{"file_id": fileID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal getFile payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/getFile", c.apiBaseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create getFile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("getFile request failed: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode getFile response: %w", err)
	}
	if !apiResp.OK {
		return "", fmt.Errorf("getFile failed with status %d: %s", resp.StatusCode, apiResp.Description)
	}

	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(apiResp.Result, &file); err != nil {
		return "", fmt.Errorf("failed to decode getFile result: %w", err)
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("getFile returned empty file_path for %s", fileID)
	}

	return file.FilePath, nil
}

func mimeTypeForPath(path string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	return http.DetectContentType(data)
}
