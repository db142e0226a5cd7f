package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tonglam/notion-syncer/internal/domain"
)

// MaxBatchSize is the hard ceiling on a chunk, reflecting the storage
// backend's practical per-transaction statement limit.
const MaxBatchSize = 100

// patchColumns is the canonical column order for UPDATE statements, and the
// whitelist of patchable columns. Only these names are ever interpolated into
// SQL; values are always bound parameters.
var patchColumns = []string{
	"title",
	"category",
	"author",
	"source_url",
	"source_last_modified",
	"excerpt",
	"summary",
	"reading_minutes",
	"tags",
	"image_url",
	"hosted_image_url",
	"image_task_id",
	"error",
	"updated_at",
}

const insertPostQuery = `
	INSERT INTO posts (
		id, title, category, author, source_url, source_last_modified,
		excerpt, summary, reading_minutes, tags, image_url, hosted_image_url,
		image_task_id, error, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
	)`

// Writer is the single write path to the posts table. It turns a list of
// change intents into bounded atomic transactions: intents are partitioned by
// kind (inserts, then updates, then deletes), each partition is sliced into
// chunks of at most batchSize, and each chunk runs in its own transaction.
// A statement failure rolls back its chunk and fails the whole call; chunks
// already committed stay committed, and a later pass reconciles the gap.
type Writer struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewWriter(db *sqlx.DB, logger *slog.Logger) *Writer {
	return &Writer{db: db, logger: logger}
}

// Execute applies the intents in chunks of at most batchSize.
func (w *Writer) Execute(ctx context.Context, intents []domain.ChangeIntent, batchSize int) error {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		return domain.NewValidationError("batch size must be in 1..%d, got %d", MaxBatchSize, batchSize)
	}
	if len(intents) == 0 {
		return nil
	}

	inserts, updates, deletes := partition(intents)

	for _, part := range [][]domain.ChangeIntent{inserts, updates, deletes} {
		for _, c := range chunk(part, batchSize) {
			if err := w.applyChunk(ctx, c); err != nil {
				return err
			}
		}
	}

	w.logger.Debug("write pass complete",
		"inserts", len(inserts),
		"updates", len(updates),
		"deletes", len(deletes),
	)

	return nil
}

// partition splits intents by kind, preserving insertion order within each
// kind.
func partition(intents []domain.ChangeIntent) (inserts, updates, deletes []domain.ChangeIntent) {
	for _, intent := range intents {
		switch intent.Kind {
		case domain.IntentInsert:
			inserts = append(inserts, intent)
		case domain.IntentUpdate:
			updates = append(updates, intent)
		case domain.IntentDelete:
			deletes = append(deletes, intent)
		}
	}
	return inserts, updates, deletes
}

// chunk slices intents into pieces of at most size, preserving order.
func chunk(intents []domain.ChangeIntent, size int) [][]domain.ChangeIntent {
	var chunks [][]domain.ChangeIntent
	for start := 0; start < len(intents); start += size {
		end := start + size
		if end > len(intents) {
			end = len(intents)
		}
		chunks = append(chunks, intents[start:end])
	}
	return chunks
}

func (w *Writer) applyChunk(ctx context.Context, intents []domain.ChangeIntent) error {
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "begin transaction", Err: err}
	}

	for _, intent := range intents {
		if err := applyIntent(ctx, tx, intent); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

func applyIntent(ctx context.Context, tx *sqlx.Tx, intent domain.ChangeIntent) error {
	switch intent.Kind {
	case domain.IntentInsert:
		return applyInsert(ctx, tx, intent.Post)
	case domain.IntentUpdate:
		return applyUpdate(ctx, tx, intent.ID, intent.Patch)
	case domain.IntentDelete:
		return applyDelete(ctx, tx, intent.ID)
	default:
		return domain.NewValidationError("unknown intent kind %q", intent.Kind)
	}
}

func applyInsert(ctx context.Context, tx *sqlx.Tx, post *domain.Post) error {
	if post == nil {
		return domain.NewValidationError("insert intent without a post")
	}

	_, err := tx.ExecContext(ctx, insertPostQuery,
		post.ID,
		post.Title,
		post.Category,
		post.Author,
		post.SourceURL,
		post.SourceLastModified,
		post.Excerpt,
		post.Summary,
		post.ReadingMinutes,
		post.Tags,
		post.ImageURL,
		post.HostedImageURL,
		post.ImageTaskID,
		post.Error,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return &domain.StorageError{Op: fmt.Sprintf("insert post %s", post.ID), Err: err}
	}
	return nil
}

func applyUpdate(ctx context.Context, tx *sqlx.Tx, id string, patch domain.Patch) error {
	query, args, err := buildUpdate(id, patch)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return &domain.StorageError{Op: fmt.Sprintf("update post %s", id), Err: err}
	}
	return nil
}

func applyDelete(ctx context.Context, tx *sqlx.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		return &domain.StorageError{Op: fmt.Sprintf("delete post %s", id), Err: err}
	}
	return nil
}

// buildUpdate assembles a parameterized UPDATE from a patch, walking
// patchColumns in canonical order. Unknown keys are rejected.
func buildUpdate(id string, patch domain.Patch) (string, []any, error) {
	if len(patch) == 0 {
		return "", nil, domain.NewValidationError("empty patch for post %s", id)
	}

	for key := range patch {
		if !isPatchColumn(key) {
			return "", nil, domain.NewValidationError("patch column %q is not updatable", key)
		}
	}

	var sets []string
	var args []any
	for _, col := range patchColumns {
		value, ok := patch[col]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)+1))
		args = append(args, value)
	}

	query := fmt.Sprintf("UPDATE posts SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)+1)
	args = append(args, id)
	return query, args, nil
}

func isPatchColumn(name string) bool {
	for _, col := range patchColumns {
		if col == name {
			return true
		}
	}
	return false
}
