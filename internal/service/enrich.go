package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tonglam/notion-syncer/internal/config"
	"github.com/tonglam/notion-syncer/internal/domain"
)

// EnrichService fills the extended fields of posts that have not been
// enriched yet. A nil field is the only trigger; non-nil values are never
// overwritten here (reconciliation nulls them when upstream content changes).
// Image generation is asynchronous: this pass only creates the task and
// records its id, the collect pass finishes the job.
type EnrichService struct {
	posts  PostStore
	text   TextGenerator
	images ImageGenerator
	writer Writer
	logger *slog.Logger
	config config.EnrichConfig
}

func NewEnrichService(
	posts PostStore,
	text TextGenerator,
	images ImageGenerator,
	writer Writer,
	logger *slog.Logger,
	cfg config.EnrichConfig,
) *EnrichService {
	return &EnrichService{
		posts:  posts,
		text:   text,
		images: images,
		writer: writer,
		logger: logger.With("workflow", "enrich"),
		config: cfg,
	}
}

func (s *EnrichService) Enrich(ctx context.Context) (*domain.EnrichStats, error) {
	startTime := time.Now()

	batch, err := s.posts.ListNeedingEnrichment(ctx, s.config.MaxPosts)
	if err != nil {
		return nil, fmt.Errorf("list posts needing enrichment: %w", err)
	}

	stats := &domain.EnrichStats{}
	now := time.Now().UTC()

	var intents []domain.ChangeIntent
	for i := range batch {
		post := &batch[i]
		stats.Processed++

		patch, err := s.enrichOne(ctx, post, now, stats)
		if err != nil {
			s.logger.Warn("enrichment failed", "post_id", post.ID, "error", err)
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", post.ID, err))
			continue
		}

		intents = append(intents, domain.UpdateIntent(post.ID, patch))
		stats.Enriched++
	}

	if len(intents) > 0 {
		if err := s.writer.Execute(ctx, intents, s.config.BatchSize); err != nil {
			return stats, fmt.Errorf("execute intents: %w", err)
		}
	}

	stats.Duration = time.Since(startTime)
	s.logger.Info("enrich completed",
		"processed", stats.Processed,
		"enriched", stats.Enriched,
		"tasks_started", stats.TasksStarted,
		"errors", len(stats.Errors),
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *EnrichService) enrichOne(ctx context.Context, post *domain.Post, now time.Time, stats *domain.EnrichStats) (domain.Patch, error) {
	patch := domain.Patch{"updated_at": now}

	if post.Excerpt == nil {
		excerpt, err := s.text.Generate(ctx, excerptPrompt(post))
		if err != nil {
			return nil, fmt.Errorf("generate excerpt: %w", err)
		}
		patch["excerpt"] = &excerpt
	}

	if post.Summary == nil {
		summary, err := s.text.Generate(ctx, summaryPrompt(post))
		if err != nil {
			return nil, fmt.Errorf("generate summary: %w", err)
		}
		patch["summary"] = &summary
	}

	if post.Tags == nil {
		tags, err := s.text.Generate(ctx, tagsPrompt(post))
		if err != nil {
			return nil, fmt.Errorf("generate tags: %w", err)
		}
		tags = strings.TrimSpace(tags)
		patch["tags"] = &tags
	}

	if post.ReadingMinutes == nil {
		raw, err := s.text.Generate(ctx, readingMinutesPrompt(post))
		if err != nil {
			return nil, fmt.Errorf("estimate reading time: %w", err)
		}
		minutes, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("parse reading time %q: %w", raw, err)
		}
		patch["reading_minutes"] = &minutes
	}

	if post.ImageURL == nil && post.ImageTaskID == nil {
		taskID, err := s.images.CreateTask(ctx, imagePrompt(post))
		if err != nil {
			return nil, fmt.Errorf("create image task: %w", err)
		}
		patch["image_task_id"] = &taskID
		stats.TasksStarted++
	}

	return patch, nil
}

func excerptPrompt(post *domain.Post) string {
	return fmt.Sprintf(
		"Write a one-sentence teaser for a %s article titled %q by %s. Respond with the teaser only.",
		post.Category, post.Title, post.Author)
}

func summaryPrompt(post *domain.Post) string {
	return fmt.Sprintf(
		"Summarize a %s article titled %q by %s in two or three sentences. Respond with the summary only.",
		post.Category, post.Title, post.Author)
}

func tagsPrompt(post *domain.Post) string {
	return fmt.Sprintf(
		"Suggest up to five short topic tags for a %s article titled %q. Respond with a comma-separated list only.",
		post.Category, post.Title)
}

func readingMinutesPrompt(post *domain.Post) string {
	return fmt.Sprintf(
		"Estimate the reading time in minutes for a typical %s article titled %q. Respond with a single integer only.",
		post.Category, post.Title)
}

func imagePrompt(post *domain.Post) string {
	return fmt.Sprintf(
		"Minimalist cover illustration for a %s article titled %q. No text in the image.",
		post.Category, post.Title)
}
