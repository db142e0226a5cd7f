package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/tonglam/notion-syncer/internal/config"
	"github.com/tonglam/notion-syncer/internal/domain"
	"github.com/tonglam/notion-syncer/internal/service/mocks"
	"github.com/tonglam/notion-syncer/testdata/utils"
)

type ReconcileServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source    *mocks.MockDocumentSource
	posts     *mocks.MockPostStore
	writer    *mocks.MockWriter
	publisher *mocks.MockPublisher

	service *ReconcileService
	cfg     config.SyncConfig
	logger  *slog.Logger
}

func (s *ReconcileServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockDocumentSource(s.ctrl)
	s.posts = mocks.NewMockPostStore(s.ctrl)
	s.writer = mocks.NewMockWriter(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.cfg = config.SyncConfig{
		BatchSize: 100,
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.source.EXPECT().Name().Return("test-source").AnyTimes()

	s.service = NewReconcileService(
		s.source,
		s.posts,
		s.writer,
		s.publisher,
		s.logger,
		s.cfg,
	)
}

func (s *ReconcileServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestReconcileServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcileServiceTestSuite))
}

func (s *ReconcileServiceTestSuite) TestReconcile_NewPosts() {
	ctx := context.Background()
	now := time.Now().UTC()

	posts := []domain.Post{
		{
			ID:                 "doc-1",
			Title:              "First Post",
			Category:           "go",
			Author:             "alice",
			SourceURL:          "https://notion.example/doc-1",
			SourceLastModified: now,
		},
	}

	s.posts.EXPECT().ListModifiedIndex(ctx).Return(map[string]time.Time{}, nil)
	s.source.EXPECT().FetchPosts(ctx).Return(&domain.FetchResult{Posts: posts}, nil)

	s.writer.EXPECT().Execute(ctx, gomock.Any(), 100).DoAndReturn(
		func(_ context.Context, intents []domain.ChangeIntent, _ int) error {
			s.Len(intents, 1)
			s.Equal(domain.IntentInsert, intents[0].Kind)
			s.Equal("doc-1", intents[0].Post.ID)
			s.False(intents[0].Post.CreatedAt.IsZero())
			return nil
		},
	)

	s.publisher.EXPECT().Publish(ctx, gomock.Any(), true).Return(nil)

	stats, err := s.service.Reconcile(ctx)

	s.NoError(err)
	s.Equal(1, stats.Fetched)
	s.Equal(1, stats.Inserted)
	s.Equal(0, stats.Updated)
	s.Equal(0, stats.Skipped)
	s.Equal(1, stats.Published)
}

func (s *ReconcileServiceTestSuite) TestReconcile_UpdatedPost() {
	ctx := context.Background()
	now := time.Now().UTC()
	earlier := now.Add(-1 * time.Hour)

	remote := domain.Post{
		ID:                 "doc-1",
		Title:              "Renamed Post",
		Category:           "go",
		Author:             "alice",
		SourceURL:          "https://notion.example/doc-1",
		SourceLastModified: now,
	}
	stored := domain.Post{
		ID:                 "doc-1",
		Title:              "First Post",
		Category:           "go",
		Author:             "alice",
		SourceURL:          "https://notion.example/doc-1",
		SourceLastModified: earlier,
		Summary:            utils.Ptr("old summary"),
	}

	s.posts.EXPECT().ListModifiedIndex(ctx).Return(map[string]time.Time{"doc-1": earlier}, nil)
	s.source.EXPECT().FetchPosts(ctx).Return(&domain.FetchResult{Posts: []domain.Post{remote}}, nil)
	s.posts.EXPECT().GetByIDs(ctx, []string{"doc-1"}).Return([]domain.Post{stored}, nil)

	s.writer.EXPECT().Execute(ctx, gomock.Any(), 100).DoAndReturn(
		func(_ context.Context, intents []domain.ChangeIntent, _ int) error {
			s.Len(intents, 1)
			s.Equal(domain.IntentUpdate, intents[0].Kind)
			s.Equal("doc-1", intents[0].ID)
			s.Equal("Renamed Post", intents[0].Patch["title"])
			// timestamp advanced: the stale summary is nulled so
			// enrichment regenerates it
			s.Contains(intents[0].Patch, "summary")
			s.Nil(intents[0].Patch["summary"])
			return nil
		},
	)

	s.publisher.EXPECT().Publish(ctx, gomock.Any(), false).Return(nil)

	stats, err := s.service.Reconcile(ctx)

	s.NoError(err)
	s.Equal(1, stats.Fetched)
	s.Equal(0, stats.Inserted)
	s.Equal(1, stats.Updated)
	s.Equal(0, stats.Skipped)
	s.Equal(1, stats.Published)
}

func (s *ReconcileServiceTestSuite) TestReconcile_TimestampOnlyChange() {
	ctx := context.Background()
	now := time.Now().UTC()
	earlier := now.Add(-1 * time.Hour)

	// Identical content but an advanced edit timestamp: the pass must
	// still write the new timestamp and null the extended fields.
	remote := domain.Post{
		ID:                 "doc-1",
		Title:              "First Post",
		Category:           "go",
		Author:             "alice",
		SourceURL:          "https://notion.example/doc-1",
		SourceLastModified: now,
	}
	stored := remote
	stored.SourceLastModified = earlier
	stored.Summary = utils.Ptr("summary")
	stored.Excerpt = utils.Ptr("excerpt")

	s.posts.EXPECT().ListModifiedIndex(ctx).Return(map[string]time.Time{"doc-1": earlier}, nil)
	s.source.EXPECT().FetchPosts(ctx).Return(&domain.FetchResult{Posts: []domain.Post{remote}}, nil)
	s.posts.EXPECT().GetByIDs(ctx, []string{"doc-1"}).Return([]domain.Post{stored}, nil)

	s.writer.EXPECT().Execute(ctx, gomock.Any(), 100).DoAndReturn(
		func(_ context.Context, intents []domain.ChangeIntent, _ int) error {
			s.Len(intents, 1)
			patch := intents[0].Patch
			s.Contains(patch, "source_last_modified")
			s.Contains(patch, "updated_at")
			s.Nil(patch["summary"])
			s.Nil(patch["excerpt"])
			s.NotContains(patch, "title")
			return nil
		},
	)

	s.publisher.EXPECT().Publish(ctx, gomock.Any(), false).Return(nil)

	stats, err := s.service.Reconcile(ctx)

	s.NoError(err)
	s.Equal(1, stats.Updated)
}

func (s *ReconcileServiceTestSuite) TestReconcile_UnchangedPostSkipped() {
	ctx := context.Background()
	now := time.Now().UTC()

	remote := domain.Post{
		ID:                 "doc-1",
		Title:              "First Post",
		Category:           "go",
		Author:             "alice",
		SourceURL:          "https://notion.example/doc-1",
		SourceLastModified: now,
	}
	// Same timestamp and content, stored row already enriched. Extended
	// fields carry over, so the diff is empty and the row stays untouched.
	stored := remote
	stored.Summary = utils.Ptr("summary")
	stored.Tags = utils.Ptr("go,testing")

	s.posts.EXPECT().ListModifiedIndex(ctx).Return(map[string]time.Time{"doc-1": now}, nil)
	s.source.EXPECT().FetchPosts(ctx).Return(&domain.FetchResult{Posts: []domain.Post{remote}}, nil)
	s.posts.EXPECT().GetByIDs(ctx, []string{"doc-1"}).Return([]domain.Post{stored}, nil)

	stats, err := s.service.Reconcile(ctx)

	s.NoError(err)
	s.Equal(1, stats.Fetched)
	s.Equal(0, stats.Inserted)
	s.Equal(0, stats.Updated)
	s.Equal(1, stats.Skipped)
}

func (s *ReconcileServiceTestSuite) TestReconcile_SourceError() {
	ctx := context.Background()

	s.posts.EXPECT().ListModifiedIndex(ctx).Return(map[string]time.Time{}, nil)
	s.source.EXPECT().FetchPosts(ctx).Return(nil, errors.New("api error"))

	stats, err := s.service.Reconcile(ctx)

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "fetch documents")
}

func (s *ReconcileServiceTestSuite) TestReconcile_WriterError() {
	ctx := context.Background()
	now := time.Now().UTC()

	posts := []domain.Post{
		{
			ID:                 "doc-1",
			Title:              "First Post",
			Category:           "go",
			Author:             "alice",
			SourceURL:          "https://notion.example/doc-1",
			SourceLastModified: now,
		},
	}

	s.posts.EXPECT().ListModifiedIndex(ctx).Return(map[string]time.Time{}, nil)
	s.source.EXPECT().FetchPosts(ctx).Return(&domain.FetchResult{Posts: posts}, nil)
	s.writer.EXPECT().Execute(ctx, gomock.Any(), 100).Return(errors.New("tx failed"))

	stats, err := s.service.Reconcile(ctx)

	s.Error(err)
	s.NotNil(stats)
	s.Contains(err.Error(), "execute intents")
	s.Equal(0, stats.Published)
}

func (s *ReconcileServiceTestSuite) TestReconcile_PublisherNil() {
	ctx := context.Background()
	now := time.Now().UTC()

	service := NewReconcileService(
		s.source,
		s.posts,
		s.writer,
		nil,
		s.logger,
		s.cfg,
	)

	posts := []domain.Post{
		{
			ID:                 "doc-1",
			Title:              "First Post",
			Category:           "go",
			Author:             "alice",
			SourceURL:          "https://notion.example/doc-1",
			SourceLastModified: now,
		},
	}

	s.posts.EXPECT().ListModifiedIndex(ctx).Return(map[string]time.Time{}, nil)
	s.source.EXPECT().FetchPosts(ctx).Return(&domain.FetchResult{Posts: posts}, nil)
	s.writer.EXPECT().Execute(ctx, gomock.Any(), 100).Return(nil)

	stats, err := service.Reconcile(ctx)

	s.NoError(err)
	s.Equal(1, stats.Inserted)
	s.Equal(0, stats.Published)
}

func (s *ReconcileServiceTestSuite) TestReconcile_SkippedDocumentsReported() {
	ctx := context.Background()

	s.posts.EXPECT().ListModifiedIndex(ctx).Return(map[string]time.Time{}, nil)
	s.source.EXPECT().FetchPosts(ctx).Return(&domain.FetchResult{
		Skipped: []string{"doc-9: missing title"},
	}, nil)

	stats, err := s.service.Reconcile(ctx)

	s.NoError(err)
	s.Equal(0, stats.Fetched)
	s.Len(stats.Errors, 1)
}
