package models

import "time"

// Feed is a short-lived container for posts, tagged with an emoji and a location.
type Feed struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Emoji     string    `gorm:"size:32;not null" json:"emoji"`
	Location  string    `gorm:"size:255;not null" json:"location"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
}

// IsExpired reports whether the feed's lifetime has elapsed at now.
// Nothing filters on it yet; expiry is stored metadata.
func (f *Feed) IsExpired(now time.Time) bool {
	return !now.Before(f.ExpiresAt)
}
