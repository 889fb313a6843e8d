package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Movie release statuses.
const (
	MovieStatusUpcoming  = "upcoming"
	MovieStatusReleased  = "released"
	MovieStatusCancelled = "cancelled"
)

type Movie struct {
    gorm.Model
    Title       string         `gorm:"column:title;size:255;not null" json:"title"`
    Synopsis    string         `gorm:"column:synopsis;type:text" json:"synopsis,omitempty"`
    PosterURL   string         `gorm:"column:poster_url;size:500" json:"poster_url,omitempty"`
    Genres      pq.StringArray `gorm:"type:text[];column:genres" json:"genres,omitempty"`
    ReleaseDate time.Time      `gorm:"column:release_date;index" json:"release_date"`
    Status      string         `gorm:"column:status;size:50;not null;default:upcoming" json:"status"`

    OTTReleases []OTTRelease `gorm:"foreignKey:MovieID" json:"ott_releases,omitempty"`
}

type OTTPlatform struct {
    gorm.Model
    Name    string `gorm:"column:name;size:100;not null;uniqueIndex" json:"name"`
    LogoURL string `gorm:"column:logo_url;size:500" json:"logo_url,omitempty"`
}

func (OTTPlatform) TableName() string {
    return "ott_platforms"
}

// OTTRelease records a movie becoming available on a streaming platform.
type OTTRelease struct {
    gorm.Model
    MovieID       uint         `gorm:"column:movie_id;not null;index" json:"movie_id"`
    PlatformID    uint         `gorm:"column:platform_id;not null" json:"platform_id"`
    AvailableDate time.Time    `gorm:"column:available_date;index" json:"available_date"`
    Movie         *Movie       `gorm:"foreignKey:MovieID" json:"movie,omitempty"`
    Platform      *OTTPlatform `gorm:"foreignKey:PlatformID" json:"platform,omitempty"`
}

func (OTTRelease) TableName() string {
    return "ott_releases"
}
