package notification

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB returns an isolated in-memory database with the full schema. The
// shared-cache name keeps all pooled connections on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Movie{},
		&models.OTTPlatform{},
		&models.OTTRelease{},
		&models.WatchlistItem{},
		&models.PushToken{},
		&models.NotificationQueueEntry{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string, digest bool) models.User {
	t.Helper()
	user := models.User{
		FullName:         name,
		Email:            fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		DigestSubscribed: digest,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedToken(t *testing.T, db *gorm.DB, userID uint, token string) models.PushToken {
	t.Helper()
	pt := models.PushToken{
		UserID:        userID,
		ExpoPushToken: token,
		IsActive:      true,
	}
	require.NoError(t, db.Create(&pt).Error)
	return pt
}

func seedEntry(t *testing.T, db *gorm.DB, userID uint, status string, scheduledFor time.Time) models.NotificationQueueEntry {
	t.Helper()
	entry := models.NotificationQueueEntry{
		UserID:       userID,
		Type:         models.TypeWeeklyDigest,
		Title:        "Test notification",
		Body:         "Test body",
		ScheduledFor: scheduledFor,
		Status:       status,
	}
	require.NoError(t, db.Create(&entry).Error)
	return entry
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func entryByID(t *testing.T, db *gorm.DB, id uint) models.NotificationQueueEntry {
	t.Helper()
	var entry models.NotificationQueueEntry
	require.NoError(t, db.First(&entry, id).Error)
	return entry
}
