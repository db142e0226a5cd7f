// Package blobstore re-hosts generated images on object storage so post rows
// can point at a stable URL instead of a provider's expiring one.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tonglam/notion-syncer/internal/domain"
)

// Config holds blob-storage client configuration.
type Config struct {
	Endpoint            string
	Bucket              string
	AccessToken         string
	PublicBaseURL       string
	AllowedContentTypes []string
	MaxBytes            int64
	Timeout             time.Duration
}

// Client uploads objects to an S3-style HTTP endpoint.
type Client struct {
	httpClient    *http.Client
	endpoint      string
	bucket        string
	accessToken   string
	publicBaseURL string
	allowed       map[string]bool
	maxBytes      int64
	logger        *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	allowed := make(map[string]bool, len(cfg.AllowedContentTypes))
	for _, ct := range cfg.AllowedContentTypes {
		allowed[ct] = true
	}

	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/"),
		bucket:        cfg.Bucket,
		accessToken:   cfg.AccessToken,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		allowed:       allowed,
		maxBytes:      cfg.MaxBytes,
		logger:        logger.With("client", "blobstore"),
	}
}

// Upload fetches sourceURL, validates content type and size, stores the bytes
// under key, and returns the public URL.
func (c *Client) Upload(ctx context.Context, sourceURL, key string) (string, error) {
	contentType, data, err := c.fetch(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	if err := c.put(ctx, key, contentType, data); err != nil {
		return "", err
	}

	c.logger.Debug("uploaded object", "key", key, "bytes", len(data))
	return c.publicBaseURL + "/" + key, nil
}

func (c *Client) fetch(ctx context.Context, sourceURL string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, &domain.RemoteAPIError{Op: "fetch source image", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, &domain.RemoteAPIError{
			Op:  "fetch source image",
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	if !c.allowed[contentType] {
		return "", nil, domain.NewValidationError("content type %q not allowed", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", nil, &domain.RemoteAPIError{Op: "read source image", Err: err}
	}
	if int64(len(data)) > c.maxBytes {
		return "", nil, domain.NewValidationError("object exceeds max size of %d bytes", c.maxBytes)
	}

	return contentType, data, nil
}

func (c *Client) put(ctx context.Context, key, contentType string, data []byte) error {
	endpoint := fmt.Sprintf("%s/%s/%s", c.endpoint, url.PathEscape(c.bucket), key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.RemoteAPIError{Op: "upload object", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &domain.RemoteAPIError{
			Op:  "upload object",
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return nil
}
