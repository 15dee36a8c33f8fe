package repository

import (
	"context"

	"lookup/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	ListByFeed(ctx context.Context, feedID uint) ([]models.PostWithAuthor, error)
	ListAll(ctx context.Context) ([]models.PostWithAuthor, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("User", "Feed").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) ListByFeed(ctx context.Context, feedID uint) ([]models.PostWithAuthor, error) {
	return r.list(r.withAuthor(ctx).Where("posts.feed_id = ?", feedID))
}

func (r *postRepository) ListAll(ctx context.Context) ([]models.PostWithAuthor, error) {
	return r.list(r.withAuthor(ctx))
}

func (r *postRepository) withAuthor(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("posts").
		Select("posts.id, posts.image_path, posts.caption, posts.is_video, posts.user_id, posts.feed_id, posts.created_at, users.nickname").
		Joins("JOIN users ON users.id = posts.user_id").
		Order("posts.created_at DESC").
		Order("posts.id DESC")
}

func (r *postRepository) list(query *gorm.DB) ([]models.PostWithAuthor, error) {
	posts := make([]models.PostWithAuthor, 0)
	if err := query.Scan(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if posts == nil {
		posts = []models.PostWithAuthor{}
	}
	return posts, nil
}
