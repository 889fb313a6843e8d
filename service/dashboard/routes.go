package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"github.com/CineTrackHQ/CineTrack-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// DashboardStats is what the admin dashboard's overview page polls: queue depth
// by status plus registry and subscriber sizes.
type DashboardStats struct {
	QueueByStatus     map[string]int64 `json:"queue_by_status"`
	ActiveTokens      int64            `json:"active_tokens"`
	DigestSubscribers int64            `json:"digest_subscribers"`
	TotalMovies       int64            `json:"total_movies"`
}

// RegisterRoutes registers dashboard-related routes with Gorilla Mux
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	dashboardRouter := router.PathPrefix("/dashboard").Subrouter()
	dashboardRouter.HandleFunc("/stats", utils.AdminMiddleware(h.GetDashboardStats)).Methods("GET")
}

func (h *DashboardHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats := DashboardStats{
		QueueByStatus: make(map[string]int64),
	}

	rows := []struct {
		Status string
		Count  int64
	}{}
	if err := h.db.Model(&models.NotificationQueueEntry{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		http.Error(w, "Error counting queue entries", http.StatusInternalServerError)
		return
	}
	for _, row := range rows {
		stats.QueueByStatus[row.Status] = row.Count
	}

	h.db.Model(&models.PushToken{}).Where("is_active = ?", true).Count(&stats.ActiveTokens)
	h.db.Model(&models.User{}).Where("digest_subscribed = ?", true).Count(&stats.DigestSubscribers)
	h.db.Model(&models.Movie{}).Count(&stats.TotalMovies)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
