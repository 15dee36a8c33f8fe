package service

import (
	"context"
	"strings"
	"time"

	"lookup/internal/models"
	"lookup/internal/repository"
)

// FeedLifetime is how long a feed lives after creation. It is stored with the
// feed; nothing filters or sweeps on it.
const FeedLifetime = 3 * time.Minute

type FeedService struct {
	feedRepo repository.FeedRepository
	now      func() time.Time
}

func NewFeedService(feedRepo repository.FeedRepository) *FeedService {
	return &FeedService{feedRepo: feedRepo, now: time.Now}
}

// CreateFeed stores a feed expiring FeedLifetime after now. Clients never
// choose the expiry.
func (s *FeedService) CreateFeed(ctx context.Context, emoji, location string) (*models.Feed, error) {
	emoji = strings.TrimSpace(emoji)
	location = strings.TrimSpace(location)
	if emoji == "" || location == "" {
		return nil, models.NewValidationError("Emoji and location are required.")
	}

	// Truncate so both timestamps survive second-precision DATETIME columns
	// with the exact lifetime between them.
	createdAt := s.now().UTC().Truncate(time.Second)
	feed := &models.Feed{
		Emoji:     emoji,
		Location:  location,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(FeedLifetime),
	}
	if err := s.feedRepo.Create(ctx, feed); err != nil {
		return nil, err
	}
	return feed, nil
}
