package repository

import (
	"context"
	"errors"

	"lookup/internal/models"

	"gorm.io/gorm"
)

// FeedRepository defines persistence operations for feeds.
type FeedRepository interface {
	Create(ctx context.Context, feed *models.Feed) error
	GetByID(ctx context.Context, id uint) (*models.Feed, error)
	Exists(ctx context.Context, id uint) (bool, error)
}

type feedRepository struct {
	db *gorm.DB
}

// NewFeedRepository returns a new FeedRepository implementation.
func NewFeedRepository(db *gorm.DB) FeedRepository {
	return &feedRepository{db: db}
}

// Create inserts feed and fills in its generated ID.
func (r *feedRepository) Create(ctx context.Context, feed *models.Feed) error {
	if err := r.db.WithContext(ctx).Create(feed).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedRepository) GetByID(ctx context.Context, id uint) (*models.Feed, error) {
	var feed models.Feed
	if err := r.db.WithContext(ctx).First(&feed, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Feed", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &feed, nil
}

func (r *feedRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Feed{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
