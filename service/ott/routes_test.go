package ott

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
		&models.NotificationQueueEntry{},
	))
	return db
}

func seedPlatform(t *testing.T, db *gorm.DB, name string) models.OTTPlatform {
	t.Helper()
	platform := models.OTTPlatform{Name: name}
	require.NoError(t, db.Create(&platform).Error)
	return platform
}

func seedRelease(t *testing.T, db *gorm.DB, movieID, platformID uint, available time.Time) models.OTTRelease {
	t.Helper()
	release := models.OTTRelease{
		MovieID:       movieID,
		PlatformID:    platformID,
		AvailableDate: available,
	}
	require.NoError(t, db.Create(&release).Error)
	return release
}

func requestWithID(method, body string, id uint) *http.Request {
	r := httptest.NewRequest(method, "/", bytes.NewBufferString(body))
	return mux.SetURLVars(r, map[string]string{"id": fmt.Sprintf("%d", id)})
}

func TestUpdatePlatform(t *testing.T) {
	db := newTestDB(t)
	platform := seedPlatform(t, db, "Netflix")
	h := NewOTTHandler(db)

	w := httptest.NewRecorder()
	h.UpdatePlatform(w, requestWithID("PUT", `{"name":"Netflix India","logo_url":"https://cdn/nf.png"}`, platform.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.OTTPlatform
	require.NoError(t, db.First(&reloaded, platform.ID).Error)
	assert.Equal(t, "Netflix India", reloaded.Name)
	assert.Equal(t, "https://cdn/nf.png", reloaded.LogoURL)
}

func TestUpdatePlatformNotFound(t *testing.T) {
	db := newTestDB(t)
	h := NewOTTHandler(db)

	w := httptest.NewRecorder()
	h.UpdatePlatform(w, requestWithID("PUT", `{"name":"x"}`, 999))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePlatform(t *testing.T) {
	db := newTestDB(t)
	platform := seedPlatform(t, db, "aha")
	h := NewOTTHandler(db)

	w := httptest.NewRecorder()
	h.DeletePlatform(w, requestWithID("DELETE", "", platform.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.OTTPlatform{}).Count(&count)
	assert.Zero(t, count)

	w = httptest.NewRecorder()
	h.DeletePlatform(w, requestWithID("DELETE", "", platform.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateRelease(t *testing.T) {
	db := newTestDB(t)
	movie := models.Movie{Title: "Salaar", Status: models.MovieStatusReleased}
	require.NoError(t, db.Create(&movie).Error)
	netflix := seedPlatform(t, db, "Netflix")
	prime := seedPlatform(t, db, "Prime Video")
	release := seedRelease(t, db, movie.ID, netflix.ID, time.Now().Add(24*time.Hour))
	h := NewOTTHandler(db)

	moved := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	body := fmt.Sprintf(`{"platform_id":%d,"available_date":%q}`, prime.ID, moved.Format(time.RFC3339))
	w := httptest.NewRecorder()
	h.UpdateRelease(w, requestWithID("PUT", body, release.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.OTTRelease
	require.NoError(t, db.First(&reloaded, release.ID).Error)
	assert.Equal(t, prime.ID, reloaded.PlatformID)
	assert.WithinDuration(t, moved, reloaded.AvailableDate, time.Second)
}

func TestUpdateReleaseRejectsUnknownPlatform(t *testing.T) {
	db := newTestDB(t)
	movie := models.Movie{Title: "Salaar", Status: models.MovieStatusReleased}
	require.NoError(t, db.Create(&movie).Error)
	netflix := seedPlatform(t, db, "Netflix")
	release := seedRelease(t, db, movie.ID, netflix.ID, time.Now().Add(24*time.Hour))
	h := NewOTTHandler(db)

	w := httptest.NewRecorder()
	h.UpdateRelease(w, requestWithID("PUT", `{"platform_id":999}`, release.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var reloaded models.OTTRelease
	require.NoError(t, db.First(&reloaded, release.ID).Error)
	assert.Equal(t, netflix.ID, reloaded.PlatformID)
}

func TestDeleteRelease(t *testing.T) {
	db := newTestDB(t)
	movie := models.Movie{Title: "Salaar", Status: models.MovieStatusReleased}
	require.NoError(t, db.Create(&movie).Error)
	netflix := seedPlatform(t, db, "Netflix")
	release := seedRelease(t, db, movie.ID, netflix.ID, time.Now().Add(24*time.Hour))
	h := NewOTTHandler(db)

	w := httptest.NewRecorder()
	h.DeleteRelease(w, requestWithID("DELETE", "", release.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.OTTRelease{}).Count(&count)
	assert.Zero(t, count)

	w = httptest.NewRecorder()
	h.DeleteRelease(w, requestWithID("DELETE", "", release.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
