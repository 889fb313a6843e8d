package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"gorm.io/gorm"
)

// DigestGenerator builds the weekly "This Week in Telugu Cinema" notification
// from the next seven days of theatrical and OTT releases and enqueues one copy
// per digest subscriber.
type DigestGenerator struct {
	db  *gorm.DB
	loc *time.Location
}

func NewDigestGenerator(db *gorm.DB) *DigestGenerator {
	// Day boundaries follow the audience's timezone.
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.UTC
	}
	return &DigestGenerator{db: db, loc: loc}
}

// Run generates one digest for the window [today, today+7). Empty release sets
// and an empty subscriber list are skips, not errors; everything else aborts
// the run with no partial inserts.
func (g *DigestGenerator) Run(ctx context.Context) (*models.DigestResult, error) {
	now := time.Now().In(g.loc)
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, g.loc)
	windowEnd := windowStart.AddDate(0, 0, 7)

	var theatrical []models.Movie
	err := g.db.WithContext(ctx).
		Where("release_date >= ? AND release_date < ? AND status <> ?",
			windowStart, windowEnd, models.MovieStatusCancelled).
		Order("release_date, title").
		Find(&theatrical).Error
	if err != nil {
		return nil, fmt.Errorf("loading theatrical releases: %w", err)
	}

	var ott []models.OTTRelease
	err = g.db.WithContext(ctx).
		Preload("Movie").
		Preload("Platform").
		Where("available_date >= ? AND available_date < ?", windowStart, windowEnd).
		Order("available_date, id").
		Find(&ott).Error
	if err != nil {
		return nil, fmt.Errorf("loading OTT releases: %w", err)
	}

	if len(theatrical) == 0 && len(ott) == 0 {
		return &models.DigestResult{Skipped: true, Reason: "no releases this week"}, nil
	}

	title, body := buildDigest(theatrical, ott)

	var subscriberIDs []uint
	err = g.db.WithContext(ctx).
		Model(&models.User{}).
		Where("digest_subscribed = ?", true).
		Order("id").
		Pluck("id", &subscriberIDs).Error
	if err != nil {
		return nil, fmt.Errorf("loading digest subscribers: %w", err)
	}
	if len(subscriberIDs) == 0 {
		return &models.DigestResult{Skipped: true, Reason: "no subscribers"}, nil
	}

	entries := make([]models.NotificationQueueEntry, 0, len(subscriberIDs))
	for _, userID := range subscriberIDs {
		entries = append(entries, models.NotificationQueueEntry{
			UserID:       userID,
			Type:         models.TypeWeeklyDigest,
			Title:        title,
			Body:         body,
			ScheduledFor: time.Now(),
			Status:       models.StatusPending,
		})
	}
	if err := g.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return nil, fmt.Errorf("enqueueing digest notifications: %w", err)
	}

	return &models.DigestResult{Enqueued: len(entries)}, nil
}

// buildDigest renders the shared title and body. The same release rows always
// produce byte-identical strings; callers rely on the queries' stable ordering.
func buildDigest(theatrical []models.Movie, ott []models.OTTRelease) (string, string) {
	var sections []string

	if len(theatrical) > 0 {
		titles := make([]string, 0, len(theatrical))
		for _, m := range theatrical {
			titles = append(titles, m.Title)
		}
		sections = append(sections, "Theatrical: "+strings.Join(titles, ", "))
	}

	if len(ott) > 0 {
		items := make([]string, 0, len(ott))
		for _, r := range ott {
			movieTitle := ""
			if r.Movie != nil {
				movieTitle = r.Movie.Title
			}
			platformName := ""
			if r.Platform != nil {
				platformName = r.Platform.Name
			}
			items = append(items, fmt.Sprintf("%s on %s", movieTitle, platformName))
		}
		sections = append(sections, "OTT: "+strings.Join(items, ", "))
	}

	count := len(theatrical) + len(ott)
	title := fmt.Sprintf("This Week in Telugu Cinema (%d releases)", count)
	return title, strings.Join(sections, " | ")
}
