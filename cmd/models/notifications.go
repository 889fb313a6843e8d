package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification queue entry statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSent       = "sent"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Notification types understood by the mobile client.
const (
	TypeWatchlistReminder = "watchlist_reminder"
	TypeReleaseDay        = "release_day"
	TypeOTTAvailable      = "ott_available"
	TypeWeeklyDigest      = "weekly_digest"
)

// NotificationQueueEntry is one notification intended for one user. Rows are
// insert-only; status transitions are the only mutation after creation.
// pending -> processing -> sent is the dispatcher path; failed is reached when a
// run aborts after claiming, and only the bulk retry operator moves it back to
// pending. sent and cancelled are terminal.
type NotificationQueueEntry struct {
    gorm.Model
    UserID       uint       `gorm:"column:user_id;not null;index" json:"user_id"`
    MovieID      *uint      `gorm:"column:movie_id" json:"movie_id,omitempty"`
    Type         string     `gorm:"column:type;type:varchar(50);not null" json:"type"`
    Title        string     `gorm:"column:title;not null" json:"title"`
    Body         string     `gorm:"column:body;type:text;not null" json:"body"`
    Data         string     `gorm:"column:data;type:text" json:"data,omitempty"` // JSON payload forwarded verbatim to the client
    ScheduledFor time.Time  `gorm:"column:scheduled_for;not null;index:idx_due" json:"scheduled_for"`
    Status       string     `gorm:"column:status;type:varchar(20);not null;default:pending;index:idx_due" json:"status"`
    ClaimID      string     `gorm:"column:claim_id;type:varchar(36)" json:"-"` // dispatch run that claimed this entry
    SentAt       *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
}

func (NotificationQueueEntry) TableName() string {
    return "notification_queue"
}

// PushToken maps a user to one device-level Expo push token. A token is
// deactivated exactly once, when the provider reports it unregistered; it only
// comes back through the device registration endpoint.
type PushToken struct {
    gorm.Model
    UserID        uint   `gorm:"column:user_id;not null;index;uniqueIndex:idx_token_user" json:"user_id"`
    ExpoPushToken string `gorm:"column:expo_push_token;not null;uniqueIndex:idx_token_user" json:"expo_push_token"`
    DeviceName    string `gorm:"column:device_name;type:varchar(100)" json:"device_name,omitempty"`
    IsActive      bool   `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
}

// ComposeRequest is the operator compose-notification action. Type defaults by
// audience; URL optionally becomes a {"url": ...} payload the client treats as
// a direct deep link.
type ComposeRequest struct {
    Title        string     `json:"title"`
    Body         string     `json:"body"`
    Audience     string     `json:"audience"` // all | digest_subscribers | movie_watchlisters
    Type         string     `json:"type,omitempty"`
    MovieID      *uint      `json:"movie_id,omitempty"`
    URL          string     `json:"url,omitempty"`
    ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// Audience selectors for ComposeRequest.
const (
    AudienceAll               = "all"
    AudienceDigestSubscribers = "digest_subscribers"
    AudienceMovieWatchlisters = "movie_watchlisters"
)

// DispatchResult summarizes one dispatcher run. Processed counts queue entries,
// sent/failed count provider-level messages.
type DispatchResult struct {
    Processed int `json:"processed"`
    Sent      int `json:"sent"`
    Failed    int `json:"failed"`
}

// DigestResult summarizes one digest generation run.
type DigestResult struct {
    Skipped  bool   `json:"skipped"`
    Reason   string `json:"reason,omitempty"`
    Enqueued int    `json:"enqueued"`
}
