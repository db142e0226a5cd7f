// Package enrich holds the clients for the text- and image-generation
// providers used to fill a post's extended fields.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tonglam/notion-syncer/internal/domain"
	"github.com/tonglam/notion-syncer/internal/ratelimit"
)

// TextConfig holds text-generation client configuration.
type TextConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// TextClient calls a chat-completion style API, one opaque call per prompt.
type TextClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
}

func NewTextClient(cfg TextConfig, limiter *ratelimit.Limiter, logger *slog.Logger) *TextClient {
	return &TextClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		limiter:    limiter,
		logger:     logger.With("client", "text"),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends one prompt and returns the completion text.
func (c *TextClient) Generate(ctx context.Context, prompt string) (string, error) {
	return ratelimit.Do(ctx, c.limiter, func(ctx context.Context) (string, error) {
		text, err := c.complete(ctx, prompt)
		if err != nil {
			return "", &domain.RemoteAPIError{Op: "generate text", Err: err}
		}
		return text, nil
	})
}

func (c *TextClient) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, errBody)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}

	return chat.Choices[0].Message.Content, nil
}
