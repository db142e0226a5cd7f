package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tonglam/notion-syncer/internal/domain"
)

// PostStore holds the read paths over the posts table. All writes go through
// the Writer.
type PostStore struct {
	db *sqlx.DB
}

func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

// ListModifiedIndex returns id -> source_last_modified for every persisted
// post. This is the cheap first read of a reconciliation pass; no full rows.
func (s *PostStore) ListModifiedIndex(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source_last_modified FROM posts`)
	if err != nil {
		return nil, &domain.StorageError{Op: "list modified index", Err: err}
	}
	defer rows.Close()

	index := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var lastMod time.Time
		if err := rows.Scan(&id, &lastMod); err != nil {
			return nil, &domain.StorageError{Op: "scan modified index", Err: err}
		}
		index[id] = lastMod
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list modified index", Err: err}
	}

	return index, nil
}

// GetByIDs fetches full rows for exactly the given ids.
func (s *PostStore) GetByIDs(ctx context.Context, ids []string) ([]domain.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var posts []domain.Post
	query := `SELECT * FROM posts WHERE id = ANY($1)`
	if err := s.db.SelectContext(ctx, &posts, query, pq.Array(ids)); err != nil {
		return nil, &domain.StorageError{Op: "get posts by ids", Err: err}
	}
	return posts, nil
}

// ListPendingImageTasks returns posts with an outstanding image task, oldest
// first.
func (s *PostStore) ListPendingImageTasks(ctx context.Context, limit int) ([]domain.Post, error) {
	var posts []domain.Post
	query := `
		SELECT * FROM posts
		WHERE image_task_id IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT $1`
	if err := s.db.SelectContext(ctx, &posts, query, limit); err != nil {
		return nil, &domain.StorageError{Op: "list pending image tasks", Err: err}
	}
	return posts, nil
}

// CountPendingImageTasks returns the number of posts with an outstanding
// image task.
func (s *PostStore) CountPendingImageTasks(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM posts WHERE image_task_id IS NOT NULL`
	if err := s.db.GetContext(ctx, &count, query); err != nil {
		return 0, &domain.StorageError{Op: "count pending image tasks", Err: err}
	}
	return count, nil
}

// ListNeedingEnrichment returns posts with at least one unfilled extended
// field. A null summary covers fresh inserts and upstream-edit resets; a null
// image_url with no outstanding task covers image generation that has not
// been tried yet or whose last task failed, so failed tasks get re-attempted.
func (s *PostStore) ListNeedingEnrichment(ctx context.Context, limit int) ([]domain.Post, error) {
	var posts []domain.Post
	query := `
		SELECT * FROM posts
		WHERE summary IS NULL
		   OR (image_url IS NULL AND image_task_id IS NULL)
		ORDER BY created_at ASC
		LIMIT $1`
	if err := s.db.SelectContext(ctx, &posts, query, limit); err != nil {
		return nil, &domain.StorageError{Op: "list posts needing enrichment", Err: err}
	}
	return posts, nil
}

// DeleteAll empties the posts table. Kept for the legacy clear-and-replace
// mode; the reconciliation path never deletes.
func (s *PostStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return &domain.StorageError{Op: "delete all posts", Err: err}
	}
	return nil
}
