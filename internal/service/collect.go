package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonglam/notion-syncer/internal/config"
	"github.com/tonglam/notion-syncer/internal/domain"
)

// CollectService polls outstanding image-generation tasks. Each invocation
// performs exactly one status check per task and returns; completion is
// reached by being invoked repeatedly on a schedule. A terminal status always
// clears image_task_id on the owning post: success sets the image URLs,
// failure records the provider's message so a later enrichment pass can
// re-attempt generation.
type CollectService struct {
	posts  PostStore
	images ImageGenerator
	blobs  BlobStore
	writer Writer
	logger *slog.Logger
	config config.CollectConfig
}

func NewCollectService(
	posts PostStore,
	images ImageGenerator,
	blobs BlobStore,
	writer Writer,
	logger *slog.Logger,
	cfg config.CollectConfig,
) *CollectService {
	return &CollectService{
		posts:  posts,
		images: images,
		blobs:  blobs,
		writer: writer,
		logger: logger.With("workflow", "collect"),
		config: cfg,
	}
}

func (s *CollectService) Collect(ctx context.Context) (*domain.CollectStats, error) {
	startTime := time.Now()

	count, err := s.posts.CountPendingImageTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending tasks: %w", err)
	}
	if count > s.config.MaxTasks {
		return nil, domain.NewValidationError(
			"outstanding image tasks %d exceed cap %d", count, s.config.MaxTasks)
	}
	if count == 0 {
		return &domain.CollectStats{Duration: time.Since(startTime)}, nil
	}

	pending, err := s.posts.ListPendingImageTasks(ctx, s.config.MaxTasks)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}

	stats := &domain.CollectStats{}
	now := time.Now().UTC()

	var intents []domain.ChangeIntent
	for i := range pending {
		post := &pending[i]
		stats.Processed++

		patch := s.collectOne(ctx, post, now, stats)
		if patch == nil {
			continue
		}
		intents = append(intents, domain.UpdateIntent(post.ID, patch))
	}

	if len(intents) > 0 {
		if err := s.writer.Execute(ctx, intents, s.config.BatchSize); err != nil {
			return stats, fmt.Errorf("execute intents: %w", err)
		}
	}

	stats.Duration = time.Since(startTime)
	s.logger.Info("collect completed",
		"processed", stats.Processed,
		"completed", stats.Completed,
		"failed", stats.Failed,
		"pending", stats.Pending,
		"duration", stats.Duration,
	)

	return stats, nil
}

// collectOne polls one task and returns the patch for the owning post, or nil
// when the task is still pending and the post must stay untouched. Errors
// while processing one record are treated as task failure so the record does
// not wedge the queue.
func (s *CollectService) collectOne(ctx context.Context, post *domain.Post, now time.Time, stats *domain.CollectStats) domain.Patch {
	taskID := *post.ImageTaskID

	result, err := s.images.CheckStatus(ctx, taskID)
	if err != nil {
		s.logger.Warn("status check failed",
			"post_id", post.ID,
			"task_id", taskID,
			"error", err,
		)
		stats.Failed++
		return failurePatch(err.Error(), now)
	}

	switch result.Status {
	case domain.TaskPending:
		stats.Pending++
		return nil

	case domain.TaskSucceeded:
		stats.Completed++
		return s.successPatch(ctx, post, result.ImageURL, now)

	case domain.TaskFailed:
		s.logger.Info("image task failed",
			"post_id", post.ID,
			"task_id", taskID,
			"error", result.Error,
		)
		stats.Failed++
		return failurePatch(result.Error, now)

	default:
		stats.Failed++
		return failurePatch(fmt.Sprintf("unknown task status %q", result.Status), now)
	}
}

func (s *CollectService) successPatch(ctx context.Context, post *domain.Post, imageURL string, now time.Time) domain.Patch {
	patch := domain.Patch{
		"image_url":     &imageURL,
		"image_task_id": nil,
		"updated_at":    now,
	}

	if s.blobs != nil {
		hosted, err := s.blobs.Upload(ctx, imageURL, post.ID+".png")
		if err != nil {
			// The provider URL still works; re-hosting is best effort.
			s.logger.Warn("image re-host failed", "post_id", post.ID, "error", err)
		} else {
			patch["hosted_image_url"] = &hosted
		}
	}

	return patch
}

func failurePatch(message string, now time.Time) domain.Patch {
	return domain.Patch{
		"error":         &message,
		"image_task_id": nil,
		"updated_at":    now,
	}
}
