package notion

import (
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

const SourceName = "notion"

// Config holds document-store client configuration.
type Config struct {
	BaseURL        string
	Token          string
	Version        string
	RootPageID     string
	PageSize       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source talks to the document store and traverses its page tree.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	version        string
	rootPageID     string
	pageSize       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	limiter        *ratelimit.Limiter
	logger         *slog.Logger
}

// New creates a document-store source. All outbound calls go through the
// given limiter.
func New(cfg Config, limiter *ratelimit.Limiter, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		token:          cfg.Token,
		version:        cfg.Version,
		rootPageID:     cfg.RootPageID,
		pageSize:       cfg.PageSize,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		limiter:        limiter,
		logger:         logger.With("source", SourceName),
	}
}

// Name returns the source identifier.
func (s *Source) Name() string {
	return SourceName
}

// RetrieveDocument fetches one page with its property bag.
func (s *Source) RetrieveDocument(ctx context.Context, id string) (*Document, error) {
	endpoint := fmt.Sprintf("%s/pages/%s", s.baseURL, url.PathEscape(id))

	var doc Document
	if err := s.getWithRetry(ctx, endpoint, &doc); err != nil {
		return nil, &domain.RemoteAPIError{Op: fmt.Sprintf("retrieve document %s", id), Err: err}
	}
	return &doc, nil
}

// ListChildren fetches one page of a block's children. An empty cursor starts
// from the beginning.
func (s *Source) ListChildren(ctx context.Context, pageID, cursor string) (*BlockList, error) {
	endpoint := fmt.Sprintf("%s/blocks/%s/children?page_size=%d", s.baseURL, url.PathEscape(pageID), s.pageSize)
	if cursor != "" {
		endpoint += "&start_cursor=" + url.QueryEscape(cursor)
	}

	var list BlockList
	if err := s.getWithRetry(ctx, endpoint, &list); err != nil {
		return nil, &domain.RemoteAPIError{Op: fmt.Sprintf("list children of %s", pageID), Err: err}
	}
	return &list, nil
}

func (s *Source) listAllChildren(ctx context.Context, pageID string) ([]Block, error) {
	var blocks []Block
	cursor := ""

	for {
		list, err := s.ListChildren(ctx, pageID, cursor)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, list.Results...)

		if !list.HasMore || list.NextCursor == nil {
			return blocks, nil
		}
		cursor = *list.NextCursor
	}
}

func (s *Source) getWithRetry(ctx context.Context, endpoint string, out any) error {
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.doRequest(ctx, endpoint, out)
		if err == nil {
			return nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, endpoint string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Notion-Version", s.version)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}
