// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a local account, created by signup or by the first Kakao login.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Username  string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Nickname  string    `gorm:"size:100;not null" json:"nickname"`
	KakaoID   *string   `gorm:"size:64;uniqueIndex" json:"kakaoId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// PublicUser is the caller-safe projection of a user.
type PublicUser struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Nickname string  `json:"nickname"`
	KakaoID  *string `json:"kakaoId"`
}

// Public returns the projection returned by the API.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Nickname: u.Nickname,
		KakaoID:  u.KakaoID,
	}
}
