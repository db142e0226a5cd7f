package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonglam/notion-syncer/internal/config"
	"github.com/tonglam/notion-syncer/internal/diff"
	"github.com/tonglam/notion-syncer/internal/domain"
)

// ReconcileService runs one incremental mirror pass: fetch the stored
// timestamp index, traverse the remote tree, partition mapped documents into
// inserts and update candidates, diff the candidates against their stored
// rows, and submit the resulting intents in batches. Documents that vanish
// from the remote traversal are left in place; the reconcile path never
// deletes.
type ReconcileService struct {
	source    DocumentSource
	posts     PostStore
	writer    Writer
	publisher Publisher
	logger    *slog.Logger
	config    config.SyncConfig
}

func NewReconcileService(
	source DocumentSource,
	posts PostStore,
	writer Writer,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *ReconcileService {
	return &ReconcileService{
		source:    source,
		posts:     posts,
		writer:    writer,
		publisher: publisher,
		logger:    logger.With("workflow", "reconcile", "source", source.Name()),
		config:    cfg,
	}
}

func (s *ReconcileService) Reconcile(ctx context.Context) (*domain.SyncStats, error) {
	startTime := time.Now()
	s.logger.Info("starting reconcile", "batch_size", s.config.BatchSize)

	stored, err := s.posts.ListModifiedIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored index: %w", err)
	}

	result, err := s.source.FetchPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}

	stats := &domain.SyncStats{
		Fetched: len(result.Posts),
		Errors:  result.Skipped,
	}

	inserts, candidates := partitionByKnown(result.Posts, stored)

	intents, updatedPosts, err := s.buildIntents(ctx, inserts, candidates, stats)
	if err != nil {
		return stats, err
	}

	if len(intents) > 0 {
		if err := s.writer.Execute(ctx, intents, s.config.BatchSize); err != nil {
			return stats, fmt.Errorf("execute intents: %w", err)
		}
	}

	stats.Inserted = len(inserts)
	stats.Updated = len(updatedPosts)
	stats.Processed = stats.Inserted + stats.Updated

	s.publish(ctx, inserts, updatedPosts, stats)

	stats.Duration = time.Since(startTime)
	s.logger.Info("reconcile completed",
		"fetched", stats.Fetched,
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", len(stats.Errors),
		"duration", stats.Duration,
	)

	return stats, nil
}

// partitionByKnown routes each mapped document by id membership in the stored
// index: unknown ids become inserts, known ids become update candidates. The
// two paths partition the input exactly.
func partitionByKnown(posts []domain.Post, stored map[string]time.Time) (inserts, candidates []domain.Post) {
	for _, p := range posts {
		if _, known := stored[p.ID]; known {
			candidates = append(candidates, p)
		} else {
			inserts = append(inserts, p)
		}
	}
	return inserts, candidates
}

// buildIntents stamps inserts and diffs update candidates against their
// stored rows. A candidate whose source_last_modified has advanced keeps its
// nil extended fields, so the diff writes NULLs and forces re-enrichment; an
// unchanged timestamp carries the stored extended fields over so enrichment
// survives metadata-only drift.
func (s *ReconcileService) buildIntents(
	ctx context.Context,
	inserts, candidates []domain.Post,
	stats *domain.SyncStats,
) ([]domain.ChangeIntent, []domain.Post, error) {
	now := time.Now().UTC()

	var intents []domain.ChangeIntent
	for i := range inserts {
		inserts[i].CreatedAt = now
		inserts[i].UpdatedAt = now
		intents = append(intents, domain.InsertIntent(&inserts[i]))
	}

	if len(candidates) == 0 {
		return intents, nil, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	rows, err := s.posts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch stored rows: %w", err)
	}
	storedByID := make(map[string]domain.Post, len(rows))
	for _, row := range rows {
		storedByID[row.ID] = row
	}

	var updatedPosts []domain.Post
	for _, remote := range candidates {
		storedPost, ok := storedByID[remote.ID]
		if !ok {
			// Row disappeared between the index read and the row fetch.
			s.logger.Warn("stored row vanished mid-pass", "post_id", remote.ID)
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: stored row vanished mid-pass", remote.ID))
			continue
		}

		if !remote.SourceLastModified.After(storedPost.SourceLastModified) {
			carryOverExtended(&remote, &storedPost)
		}

		patch := diff.Diff(&remote, &storedPost)
		if len(patch) == 0 {
			stats.Skipped++
			continue
		}

		patch["updated_at"] = now
		intents = append(intents, domain.UpdateIntent(remote.ID, patch))
		updatedPosts = append(updatedPosts, remote)
	}

	return intents, updatedPosts, nil
}

func carryOverExtended(remote, stored *domain.Post) {
	remote.Excerpt = stored.Excerpt
	remote.Summary = stored.Summary
	remote.ReadingMinutes = stored.ReadingMinutes
	remote.Tags = stored.Tags
	remote.ImageURL = stored.ImageURL
	remote.HostedImageURL = stored.HostedImageURL
}

func (s *ReconcileService) publish(ctx context.Context, inserts, updates []domain.Post, stats *domain.SyncStats) {
	if s.publisher == nil {
		return
	}

	for i := range inserts {
		if err := s.publisher.Publish(ctx, &inserts[i], true); err != nil {
			s.logger.Warn("publish failed", "post_id", inserts[i].ID, "error", err)
			continue
		}
		stats.Published++
	}
	for i := range updates {
		if err := s.publisher.Publish(ctx, &updates[i], false); err != nil {
			s.logger.Warn("publish failed", "post_id", updates[i].ID, "error", err)
			continue
		}
		stats.Published++
	}
}
