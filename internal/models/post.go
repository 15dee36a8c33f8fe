package models

import "time"

// Post is an uploaded image (or video) published by a user into a feed.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ImagePath string    `gorm:"size:512;not null" json:"imagePath"`
	Caption   *string   `gorm:"type:text" json:"caption"`
	IsVideo   bool      `gorm:"not null;default:false" json:"isVideo"`
	UserID    string    `gorm:"size:64;not null;index" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	FeedID    uint      `gorm:"not null;index" json:"feedId"`
	Feed      *Feed     `gorm:"foreignKey:FeedID;constraint:OnDelete:RESTRICT" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// PostWithAuthor is a post row joined with the posting user's nickname.
type PostWithAuthor struct {
	ID        uint      `json:"id"`
	ImagePath string    `json:"imagePath"`
	Caption   *string   `json:"caption"`
	IsVideo   bool      `json:"isVideo"`
	UserID    string    `json:"userId"`
	FeedID    uint      `json:"feedId"`
	CreatedAt time.Time `json:"createdAt"`
	Nickname  string    `json:"nickname"`
}
