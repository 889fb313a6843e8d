package notification

import (
	"testing"
	"time"

	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeAllAudience(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "Alice", true)
	seedUser(t, db, "Bob", false)
	seedUser(t, db, "Carol", false)

	count, err := Compose(db, &models.ComposeRequest{
		Title:    "Server maintenance",
		Body:     "CineTrack will be briefly unavailable tonight.",
		Audience: models.AudienceAll,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var entries []models.NotificationQueueEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 3)
	for _, entry := range entries {
		assert.Equal(t, models.StatusPending, entry.Status)
		assert.WithinDuration(t, time.Now(), entry.ScheduledFor, 5*time.Second)
	}
}

func TestComposeDigestSubscribersOnly(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice", true)
	seedUser(t, db, "Bob", false)

	count, err := Compose(db, &models.ComposeRequest{
		Title:    "Digest update",
		Body:     "Digest now arrives on Fridays.",
		Audience: models.AudienceDigestSubscribers,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var entry models.NotificationQueueEntry
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, alice.ID, entry.UserID)
}

func TestComposeWatchlistersCarriesDeepLink(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice", false)
	seedUser(t, db, "Bob", false)
	movie := seedMovie(t, db, "Devara", models.MovieStatusUpcoming, time.Now().Add(48*time.Hour))
	require.NoError(t, db.Create(&models.WatchlistItem{UserID: alice.ID, MovieID: movie.ID}).Error)

	count, err := Compose(db, &models.ComposeRequest{
		Title:    "Tickets live",
		Body:     "Devara advance bookings are open.",
		Audience: models.AudienceMovieWatchlisters,
		MovieID:  &movie.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var entry models.NotificationQueueEntry
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, alice.ID, entry.UserID)
	assert.Equal(t, models.TypeWatchlistReminder, entry.Type)
	assert.Equal(t, "/movie/"+itoa(movie.ID), ResolveDeepLinkJSON(entry.Data))
}

func TestComposeWatchlistersRequiresMovie(t *testing.T) {
	db := newTestDB(t)
	_, err := Compose(db, &models.ComposeRequest{
		Title:    "x",
		Body:     "y",
		Audience: models.AudienceMovieWatchlisters,
	})
	assert.Error(t, err)
}

func TestComposeRejectsUnknownAudienceAndType(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "Alice", false)

	_, err := Compose(db, &models.ComposeRequest{Title: "x", Body: "y", Audience: "everyone"})
	assert.Error(t, err)

	_, err = Compose(db, &models.ComposeRequest{Title: "x", Body: "y", Audience: models.AudienceAll, Type: "marketing_blast"})
	assert.Error(t, err)

	_, err = Compose(db, &models.ComposeRequest{Body: "y", Audience: models.AudienceAll})
	assert.Error(t, err)
}

func TestComposeFutureSchedule(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "Alice", false)
	when := time.Now().Add(6 * time.Hour).Truncate(time.Second)

	count, err := Compose(db, &models.ComposeRequest{
		Title:        "Premiere tonight",
		Body:         "Join the premiere at 9pm.",
		Audience:     models.AudienceAll,
		ScheduledFor: &when,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var entry models.NotificationQueueEntry
	require.NoError(t, db.First(&entry).Error)
	assert.WithinDuration(t, when, entry.ScheduledFor, time.Second)
}

func TestComposeURLPayload(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "Alice", false)

	_, err := Compose(db, &models.ComposeRequest{
		Title:    "New settings",
		Body:     "Notification preferences moved.",
		Audience: models.AudienceAll,
		URL:      "/settings/notifications",
	})
	require.NoError(t, err)

	var entry models.NotificationQueueEntry
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "/settings/notifications", ResolveDeepLinkJSON(entry.Data))
}

func TestRetryFailedTouchesOnlyFailed(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice", false)
	failed := seedEntry(t, db, alice.ID, models.StatusFailed, time.Now().Add(-time.Hour))
	sent := seedEntry(t, db, alice.ID, models.StatusSent, time.Now())
	pending := seedEntry(t, db, alice.ID, models.StatusPending, time.Now())
	cancelled := seedEntry(t, db, alice.ID, models.StatusCancelled, time.Now())

	affected, err := RetryFailed(db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	retried := entryByID(t, db, failed.ID)
	assert.Equal(t, models.StatusPending, retried.Status)
	// scheduled_for is untouched, so the retried entry is immediately due.
	assert.WithinDuration(t, failed.ScheduledFor, retried.ScheduledFor, time.Second)

	assert.Equal(t, models.StatusSent, entryByID(t, db, sent.ID).Status)
	assert.Equal(t, models.StatusPending, entryByID(t, db, pending.ID).Status)
	assert.Equal(t, models.StatusCancelled, entryByID(t, db, cancelled.ID).Status)

	// Idempotent with no new failures.
	affected, err = RetryFailed(db)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestCancelPendingTouchesOnlyPending(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice", false)
	pending := seedEntry(t, db, alice.ID, models.StatusPending, time.Now())
	sent := seedEntry(t, db, alice.ID, models.StatusSent, time.Now())
	failed := seedEntry(t, db, alice.ID, models.StatusFailed, time.Now())

	affected, err := CancelPending(db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	assert.Equal(t, models.StatusCancelled, entryByID(t, db, pending.ID).Status)
	assert.Equal(t, models.StatusSent, entryByID(t, db, sent.ID).Status)
	assert.Equal(t, models.StatusFailed, entryByID(t, db, failed.ID).Status)
}

func TestWatchlistRemindersScheduled(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice", false)
	movie := seedMovie(t, db, "Devara", models.MovieStatusUpcoming, time.Now().Add(72*time.Hour))

	count, err := EnqueueWatchlistReminders(db, alice.ID, &movie)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var entries []models.NotificationQueueEntry
	require.NoError(t, db.Order("scheduled_for").Find(&entries).Error)
	require.Len(t, entries, 2)

	assert.Equal(t, models.TypeWatchlistReminder, entries[0].Type)
	assert.WithinDuration(t, movie.ReleaseDate.Add(-24*time.Hour), entries[0].ScheduledFor, time.Second)
	assert.Equal(t, models.TypeReleaseDay, entries[1].Type)
	assert.WithinDuration(t, movie.ReleaseDate, entries[1].ScheduledFor, time.Second)

	for _, entry := range entries {
		require.NotNil(t, entry.MovieID)
		assert.Equal(t, movie.ID, *entry.MovieID)
		assert.Equal(t, "/movie/"+itoa(movie.ID), ResolveDeepLinkJSON(entry.Data))
	}
}

func TestWatchlistRemindersSkipPastAndCancelled(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice", false)

	past := seedMovie(t, db, "Old", models.MovieStatusReleased, time.Now().Add(-time.Hour))
	count, err := EnqueueWatchlistReminders(db, alice.ID, &past)
	require.NoError(t, err)
	assert.Zero(t, count)

	cancelled := seedMovie(t, db, "Shelved", models.MovieStatusCancelled, time.Now().Add(72*time.Hour))
	count, err = EnqueueWatchlistReminders(db, alice.ID, &cancelled)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEnqueueOTTAvailableTargetsWatchlisters(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice", false)
	seedUser(t, db, "Bob", false)
	movie := seedMovie(t, db, "Salaar", models.MovieStatusReleased, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, db.Create(&models.WatchlistItem{UserID: alice.ID, MovieID: movie.ID}).Error)

	platform := models.OTTPlatform{Name: "Netflix"}
	require.NoError(t, db.Create(&platform).Error)
	release := seedOTTRelease(t, db, movie.ID, platform.ID, time.Now().Add(24*time.Hour))

	count, err := EnqueueOTTAvailable(db, &release, &movie, &platform)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var entry models.NotificationQueueEntry
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, alice.ID, entry.UserID)
	assert.Equal(t, models.TypeOTTAvailable, entry.Type)
	assert.Contains(t, entry.Body, "Netflix")
	assert.WithinDuration(t, release.AvailableDate, entry.ScheduledFor, time.Second)
}
