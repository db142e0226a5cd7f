package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tonglam/notion-syncer/internal/domain"
	"github.com/tonglam/notion-syncer/internal/ratelimit"
)

// ImageConfig holds image-generation client configuration.
type ImageConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ImageClient talks to an asynchronous image-generation provider: tasks are
// created, then polled by id until they reach a terminal state.
type ImageClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
}

func NewImageClient(cfg ImageConfig, limiter *ratelimit.Limiter, logger *slog.Logger) *ImageClient {
	return &ImageClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    limiter,
		logger:     logger.With("client", "image"),
	}
}

type createTaskRequest struct {
	Prompt string `json:"prompt"`
}

type createTaskResponse struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error,omitempty"`
}

type taskStatusResponse struct {
	Status   string `json:"status"`
	ImageURL string `json:"image_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CreateTask submits a generation prompt and returns the provider task id.
func (c *ImageClient) CreateTask(ctx context.Context, prompt string) (string, error) {
	return ratelimit.Do(ctx, c.limiter, func(ctx context.Context) (string, error) {
		var created createTaskResponse
		if err := c.do(ctx, http.MethodPost, c.baseURL+"/tasks", createTaskRequest{Prompt: prompt}, &created); err != nil {
			return "", &domain.RemoteAPIError{Op: "create image task", Err: err}
		}
		if created.Error != "" {
			return "", &domain.RemoteAPIError{Op: "create image task", Err: fmt.Errorf("%s", created.Error)}
		}
		if created.TaskID == "" {
			return "", &domain.RemoteAPIError{Op: "create image task", Err: fmt.Errorf("provider returned no task id")}
		}
		return created.TaskID, nil
	})
}

// CheckStatus performs one status poll for a task. It never blocks waiting
// for completion; callers are invoked on a schedule.
func (c *ImageClient) CheckStatus(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	return ratelimit.Do(ctx, c.limiter, func(ctx context.Context) (*domain.TaskResult, error) {
		var status taskStatusResponse
		endpoint := c.baseURL + "/tasks/" + url.PathEscape(taskID)
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &status); err != nil {
			return nil, &domain.RemoteAPIError{Op: fmt.Sprintf("check task %s", taskID), Err: err}
		}

		result := &domain.TaskResult{ImageURL: status.ImageURL, Error: status.Error}
		switch status.Status {
		case "pending", "processing":
			result.Status = domain.TaskPending
		case "succeeded":
			result.Status = domain.TaskSucceeded
		case "failed":
			result.Status = domain.TaskFailed
		default:
			return nil, &domain.RemoteAPIError{
				Op:  fmt.Sprintf("check task %s", taskID),
				Err: fmt.Errorf("unknown status %q", status.Status),
			}
		}
		return result, nil
	})
}

func (c *ImageClient) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, errBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
