package repository

import (
	"context"
	"errors"

	"lookup/internal/cache"
	"lookup/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByKakaoID(ctx context.Context, kakaoID string) (*models.User, error)
	ExistsByIDOrUsername(ctx context.Context, identifier string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByKakaoID(ctx context.Context, kakaoID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateNickname(ctx context.Context, id, nickname string) error
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewUserRepository returns a new UserRepository implementation. c may be nil.
func NewUserRepository(db *gorm.DB, c *cache.Cache) UserRepository {
	return &userRepository{db: db, cache: c}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByKakaoID returns nil, nil when no user is linked to kakaoID.
func (r *userRepository) GetByKakaoID(ctx context.Context, kakaoID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("kakao_id = ?", kakaoID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) ExistsByIDOrUsername(ctx context.Context, identifier string) (bool, error) {
	return r.exists(ctx, r.db.Where("id = ? OR username = ?", identifier, identifier))
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, r.db.Where("username = ?", username))
}

func (r *userRepository) ExistsByKakaoID(ctx context.Context, kakaoID string) (bool, error) {
	return r.exists(ctx, r.db.Where("kakao_id = ?", kakaoID))
}

func (r *userRepository) exists(ctx context.Context, scope *gorm.DB) (bool, error) {
	var count int64
	if err := scope.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return conflict("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateNickname(ctx context.Context, id, nickname string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("nickname", nickname)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.cache.InvalidateUser(ctx, id)
	return nil
}
