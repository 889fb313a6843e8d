package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"gorm.io/gorm"
)

// movieIDPayload renders the data payload the client uses to deep-link into a
// movie screen.
func movieIDPayload(movieID uint) string {
	payload, _ := json.Marshal(map[string]interface{}{"movieId": movieID})
	return string(payload)
}

// ResolveAudience turns a compose audience selector into the concrete set of
// recipient user IDs.
func ResolveAudience(db *gorm.DB, audience string, movieID *uint) ([]uint, error) {
	var userIDs []uint
	switch audience {
	case models.AudienceAll:
		err := db.Model(&models.User{}).Order("id").Pluck("id", &userIDs).Error
		return userIDs, err
	case models.AudienceDigestSubscribers:
		err := db.Model(&models.User{}).
			Where("digest_subscribed = ?", true).
			Order("id").
			Pluck("id", &userIDs).Error
		return userIDs, err
	case models.AudienceMovieWatchlisters:
		if movieID == nil {
			return nil, errors.New("movie_id is required for the movie_watchlisters audience")
		}
		err := db.Model(&models.WatchlistItem{}).
			Where("movie_id = ?", *movieID).
			Order("user_id").
			Pluck("user_id", &userIDs).Error
		return userIDs, err
	default:
		return nil, fmt.Errorf("unknown audience %q", audience)
	}
}

// Compose enqueues one pending entry per resolved recipient and returns the
// recipient count. Watchlister targeting carries the movie id in the payload so
// the client can deep-link.
func Compose(db *gorm.DB, req *models.ComposeRequest) (int, error) {
	if req.Title == "" || req.Body == "" {
		return 0, errors.New("title and body are required")
	}

	userIDs, err := ResolveAudience(db, req.Audience, req.MovieID)
	if err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	scheduledFor := time.Now()
	if req.ScheduledFor != nil {
		scheduledFor = *req.ScheduledFor
	}

	entryType := req.Type
	if entryType == "" {
		if req.Audience == models.AudienceMovieWatchlisters {
			entryType = models.TypeWatchlistReminder
		} else {
			entryType = models.TypeWeeklyDigest
		}
	}
	switch entryType {
	case models.TypeWatchlistReminder, models.TypeReleaseDay, models.TypeOTTAvailable, models.TypeWeeklyDigest:
	default:
		return 0, fmt.Errorf("unknown notification type %q", entryType)
	}

	var data string
	if req.Audience == models.AudienceMovieWatchlisters {
		data = movieIDPayload(*req.MovieID)
	} else if req.URL != "" {
		payload, _ := json.Marshal(map[string]string{"url": req.URL})
		data = string(payload)
	}

	entries := make([]models.NotificationQueueEntry, 0, len(userIDs))
	for _, userID := range userIDs {
		entries = append(entries, models.NotificationQueueEntry{
			UserID:       userID,
			MovieID:      req.MovieID,
			Type:         entryType,
			Title:        req.Title,
			Body:         req.Body,
			Data:         data,
			ScheduledFor: scheduledFor,
			Status:       models.StatusPending,
		})
	}
	if err := db.Create(&entries).Error; err != nil {
		return 0, err
	}
	return len(entries), nil
}

// EnqueueWatchlistReminders schedules the release-day notification and a
// reminder one day earlier for a movie the user just watchlisted. Dates already
// in the past are skipped, as are cancelled titles.
func EnqueueWatchlistReminders(db *gorm.DB, userID uint, movie *models.Movie) (int, error) {
	if movie.Status == models.MovieStatusCancelled {
		return 0, nil
	}

	now := time.Now()
	data := movieIDPayload(movie.ID)
	var entries []models.NotificationQueueEntry

	if movie.ReleaseDate.After(now) {
		entries = append(entries, models.NotificationQueueEntry{
			UserID:       userID,
			MovieID:      &movie.ID,
			Type:         models.TypeReleaseDay,
			Title:        fmt.Sprintf("%s releases today!", movie.Title),
			Body:         fmt.Sprintf("%s is now in theaters.", movie.Title),
			Data:         data,
			ScheduledFor: movie.ReleaseDate,
			Status:       models.StatusPending,
		})
	}

	reminderAt := movie.ReleaseDate.Add(-24 * time.Hour)
	if reminderAt.After(now) {
		entries = append(entries, models.NotificationQueueEntry{
			UserID:       userID,
			MovieID:      &movie.ID,
			Type:         models.TypeWatchlistReminder,
			Title:        fmt.Sprintf("%s releases tomorrow", movie.Title),
			Body:         fmt.Sprintf("%s from your watchlist hits theaters tomorrow.", movie.Title),
			Data:         data,
			ScheduledFor: reminderAt,
			Status:       models.StatusPending,
		})
	}

	if len(entries) == 0 {
		return 0, nil
	}
	if err := db.Create(&entries).Error; err != nil {
		return 0, err
	}
	return len(entries), nil
}

// EnqueueOTTAvailable notifies everyone who watchlisted the movie that it is
// coming to a streaming platform.
func EnqueueOTTAvailable(db *gorm.DB, release *models.OTTRelease, movie *models.Movie, platform *models.OTTPlatform) (int, error) {
	var userIDs []uint
	err := db.Model(&models.WatchlistItem{}).
		Where("movie_id = ?", movie.ID).
		Order("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	scheduledFor := release.AvailableDate
	if scheduledFor.Before(time.Now()) {
		scheduledFor = time.Now()
	}

	data := movieIDPayload(movie.ID)
	entries := make([]models.NotificationQueueEntry, 0, len(userIDs))
	for _, userID := range userIDs {
		entries = append(entries, models.NotificationQueueEntry{
			UserID:       userID,
			MovieID:      &movie.ID,
			Type:         models.TypeOTTAvailable,
			Title:        fmt.Sprintf("%s is streaming soon", movie.Title),
			Body:         fmt.Sprintf("%s arrives on %s.", movie.Title, platform.Name),
			Data:         data,
			ScheduledFor: scheduledFor,
			Status:       models.StatusPending,
		})
	}
	if err := db.Create(&entries).Error; err != nil {
		return 0, err
	}
	return len(entries), nil
}

// RetryFailed moves every failed entry back to pending. scheduled_for is left
// untouched, so retried entries are due immediately.
func RetryFailed(db *gorm.DB) (int64, error) {
	res := db.Model(&models.NotificationQueueEntry{}).
		Where("status = ?", models.StatusFailed).
		Update("status", models.StatusPending)
	return res.RowsAffected, res.Error
}

// CancelPending cancels every pending entry. Cancelled entries are terminal and
// never picked up again.
func CancelPending(db *gorm.DB) (int64, error) {
	res := db.Model(&models.NotificationQueueEntry{}).
		Where("status = ?", models.StatusPending).
		Update("status", models.StatusCancelled)
	return res.RowsAffected, res.Error
}
