package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/tonglam/notion-syncer/internal/domain"
)

type PostStore interface {
	ListModifiedIndex(ctx context.Context) (map[string]time.Time, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Post, error)
	ListPendingImageTasks(ctx context.Context, limit int) ([]domain.Post, error)
	CountPendingImageTasks(ctx context.Context) (int, error)
	ListNeedingEnrichment(ctx context.Context, limit int) ([]domain.Post, error)
}

type Writer interface {
	Execute(ctx context.Context, intents []domain.ChangeIntent, batchSize int) error
}

type DocumentSource interface {
	Name() string
	FetchPosts(ctx context.Context) (*domain.FetchResult, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ImageGenerator interface {
	CreateTask(ctx context.Context, prompt string) (string, error)
	CheckStatus(ctx context.Context, taskID string) (*domain.TaskResult, error)
}

type BlobStore interface {
	Upload(ctx context.Context, sourceURL, key string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, post *domain.Post, isNew bool) error
	Close() error
}
