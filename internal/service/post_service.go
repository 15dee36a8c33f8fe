package service

import (
	"context"
	"io"
	"strings"
	"time"

	"lookup/internal/middleware"
	"lookup/internal/models"
	"lookup/internal/repository"
	"lookup/internal/storage"
)

type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	feedRepo  repository.FeedRepository
	store     storage.ContentStore
	urlPrefix string
	now       func() time.Time
}

type CreatePostInput struct {
	File     io.Reader
	Filename string
	Caption  string
	IsVideo  bool
	UserID   string
	FeedID   uint
}

type CreatePostResult struct {
	PostID    uint   `json:"postId"`
	ImagePath string `json:"imagePath"`
}

// NewPostService serves stored files under urlPrefix (e.g. "/uploads").
func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	feedRepo repository.FeedRepository,
	store storage.ContentStore,
	urlPrefix string,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		userRepo:  userRepo,
		feedRepo:  feedRepo,
		store:     store,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		now:       time.Now,
	}
}

// CreatePost stores the upload and then records the post row. The two writes
// are not atomic: if the row cannot be written the stored file is deleted
// again and the insert error is returned.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*CreatePostResult, error) {
	if in.File == nil {
		return nil, models.NewValidationError("Image file is required.")
	}
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" || in.FeedID == 0 {
		return nil, models.NewValidationError("userId and feedId are required.")
	}

	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}
	feedExists, err := s.feedRepo.Exists(ctx, in.FeedID)
	if err != nil {
		return nil, err
	}
	if !feedExists {
		return nil, models.NewNotFoundError("Feed", in.FeedID)
	}

	name, err := s.store.Save(ctx, storage.NewObjectName(in.Filename, s.now()), in.File)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	post := &models.Post{
		ImagePath: s.urlPrefix + "/" + name,
		IsVideo:   in.IsVideo,
		UserID:    in.UserID,
		FeedID:    in.FeedID,
	}
	if caption := strings.TrimSpace(in.Caption); caption != "" {
		post.Caption = &caption
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.compensate(ctx, name)
		return nil, err
	}

	middleware.PostsCreated.Inc()
	return &CreatePostResult{PostID: post.ID, ImagePath: post.ImagePath}, nil
}

// compensate removes an upload whose row was never written. Failures are
// logged and counted only.
func (s *PostService) compensate(ctx context.Context, name string) {
	// The request context may already be done; cleanup must still run.
	if err := s.store.Delete(context.WithoutCancel(ctx), name); err != nil {
		middleware.UploadCompensations.WithLabelValues("failed").Inc()
		middleware.Logger.WarnContext(ctx, "failed to delete orphaned upload", "file", name, "error", err)
		return
	}
	middleware.UploadCompensations.WithLabelValues("deleted").Inc()
	middleware.Logger.InfoContext(ctx, "deleted orphaned upload", "file", name)
}

// ListPostsForFeed returns the feed's posts with author nicknames, newest first.
func (s *PostService) ListPostsForFeed(ctx context.Context, feedID uint) ([]models.PostWithAuthor, error) {
	if feedID == 0 {
		return nil, models.NewValidationError("feedId is required.")
	}
	return s.postRepo.ListByFeed(ctx, feedID)
}

// ListAllPosts is the legacy listing across every feed.
func (s *PostService) ListAllPosts(ctx context.Context) ([]models.PostWithAuthor, error) {
	return s.postRepo.ListAll(ctx)
}
