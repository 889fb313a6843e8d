package ott

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"github.com/CineTrackHQ/CineTrack-server/cmd/utils"
	notification "github.com/CineTrackHQ/CineTrack-server/service/notifications"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type OTTHandler struct {
	db *gorm.DB
}

func NewOTTHandler(db *gorm.DB) *OTTHandler {
	return &OTTHandler{db: db}
}

func (h *OTTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ott/platforms", h.GetPlatforms).Methods("GET")
	router.HandleFunc("/ott/platforms", utils.AdminMiddleware(h.CreatePlatform)).Methods("POST")
	router.HandleFunc("/ott/platforms/{id}", utils.AdminMiddleware(h.UpdatePlatform)).Methods("PUT")
	router.HandleFunc("/ott/platforms/{id}", utils.AdminMiddleware(h.DeletePlatform)).Methods("DELETE")
	router.HandleFunc("/ott/releases/upcoming", h.GetUpcomingReleases).Methods("GET")
	router.HandleFunc("/ott/releases", utils.AdminMiddleware(h.CreateRelease)).Methods("POST")
	router.HandleFunc("/ott/releases/{id}", utils.AdminMiddleware(h.UpdateRelease)).Methods("PUT")
	router.HandleFunc("/ott/releases/{id}", utils.AdminMiddleware(h.DeleteRelease)).Methods("DELETE")
}

func (h *OTTHandler) GetPlatforms(w http.ResponseWriter, r *http.Request) {
	var platforms []models.OTTPlatform
	if err := h.db.Order("name").Find(&platforms).Error; err != nil {
		http.Error(w, "Error retrieving platforms", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(platforms)
}

func (h *OTTHandler) CreatePlatform(w http.ResponseWriter, r *http.Request) {
	var platform models.OTTPlatform
	if err := json.NewDecoder(r.Body).Decode(&platform); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if platform.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	if err := h.db.Create(&platform).Error; err != nil {
		http.Error(w, "Error creating platform", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(platform)
}

func (h *OTTHandler) UpdatePlatform(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var platform models.OTTPlatform
	if err := h.db.First(&platform, vars["id"]).Error; err != nil {
		http.Error(w, "Platform not found", http.StatusNotFound)
		return
	}

	var updates models.OTTPlatform
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if updates.Name != "" {
		platform.Name = updates.Name
	}
	platform.LogoURL = updates.LogoURL

	if err := h.db.Save(&platform).Error; err != nil {
		http.Error(w, "Error updating platform", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(platform)
}

func (h *OTTHandler) DeletePlatform(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	platformID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid platform ID", http.StatusBadRequest)
		return
	}

	result := h.db.Delete(&models.OTTPlatform{}, platformID)
	if result.Error != nil {
		http.Error(w, "Error deleting platform", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Platform not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Platform deleted successfully",
	})
}

// GetUpcomingReleases returns OTT availability in the next seven days with
// movie and platform resolved, the digest generator's second source.
func (h *OTTHandler) GetUpcomingReleases(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	var releases []models.OTTRelease
	if err := h.db.Preload("Movie").Preload("Platform").
		Where("available_date >= ? AND available_date < ?", now, now.AddDate(0, 0, 7)).
		Order("available_date, id").
		Find(&releases).Error; err != nil {
		http.Error(w, "Error retrieving upcoming releases", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(releases)
}

// CreateRelease records a movie landing on a platform and enqueues
// ott_available notifications for that movie's watchlisters.
func (h *OTTHandler) CreateRelease(w http.ResponseWriter, r *http.Request) {
	var release models.OTTRelease
	if err := json.NewDecoder(r.Body).Decode(&release); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var movie models.Movie
	if err := h.db.First(&movie, release.MovieID).Error; err != nil {
		http.Error(w, "Movie not found", http.StatusNotFound)
		return
	}
	var platform models.OTTPlatform
	if err := h.db.First(&platform, release.PlatformID).Error; err != nil {
		http.Error(w, "Platform not found", http.StatusNotFound)
		return
	}

	if err := h.db.Create(&release).Error; err != nil {
		http.Error(w, "Error creating release", http.StatusInternalServerError)
		return
	}

	enqueued, err := notification.EnqueueOTTAvailable(h.db, &release, &movie, &platform)
	if err != nil {
		// The release itself is saved; the notification failure is operator-visible in logs.
		log.Printf("Error enqueueing ott_available notifications for movie %d: %v", movie.ID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": fmt.Sprintf("Release created, %d watchlisters notified", enqueued),
		"release": release,
	})
}

// UpdateRelease corrects an availability date or moves a release to another
// platform. It does not re-enqueue notifications; already-queued entries keep
// their original schedule.
func (h *OTTHandler) UpdateRelease(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var release models.OTTRelease
	if err := h.db.First(&release, vars["id"]).Error; err != nil {
		http.Error(w, "Release not found", http.StatusNotFound)
		return
	}

	var updates models.OTTRelease
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if updates.PlatformID != 0 {
		var platform models.OTTPlatform
		if err := h.db.First(&platform, updates.PlatformID).Error; err != nil {
			http.Error(w, "Platform not found", http.StatusNotFound)
			return
		}
		release.PlatformID = updates.PlatformID
	}
	if !updates.AvailableDate.IsZero() {
		release.AvailableDate = updates.AvailableDate
	}

	if err := h.db.Save(&release).Error; err != nil {
		http.Error(w, "Error updating release", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(release)
}

func (h *OTTHandler) DeleteRelease(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	releaseID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid release ID", http.StatusBadRequest)
		return
	}

	result := h.db.Delete(&models.OTTRelease{}, releaseID)
	if result.Error != nil {
		http.Error(w, "Error deleting release", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Release not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Release deleted successfully",
	})
}
