package models

import (
	"gorm.io/gorm"
)

// User is a mobile app account. Authentication lives in the identity service;
// this table only carries the profile fields the backend needs, most
// importantly the weekly digest opt-in.
type User struct {
    gorm.Model
    FullName         string `gorm:"column:full_name;size:255;not null" json:"full_name"`
    Email            string `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
    DigestSubscribed bool   `gorm:"column:digest_subscribed;not null;default:false;index" json:"digest_subscribed"`

    PushTokens []PushToken     `gorm:"foreignKey:UserID" json:"push_tokens,omitempty"`
    Watchlist  []WatchlistItem `gorm:"foreignKey:UserID" json:"watchlist,omitempty"`
}

type WatchlistItem struct {
    gorm.Model
    UserID  uint   `gorm:"column:user_id;not null;uniqueIndex:idx_user_movie" json:"user_id"`
    MovieID uint   `gorm:"column:movie_id;not null;uniqueIndex:idx_user_movie" json:"movie_id"`
    Movie   *Movie `gorm:"foreignKey:MovieID" json:"movie,omitempty"`
}

func (WatchlistItem) TableName() string {
    return "watchlist_items"
}
