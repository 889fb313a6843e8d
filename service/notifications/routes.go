package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"github.com/CineTrackHQ/CineTrack-server/cmd/utils"
	"github.com/gorilla/mux"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"gorm.io/gorm"
)

// NotificationHandler exposes the device registry, the operator compose and
// bulk actions, and on-demand runs of the two jobs.
type NotificationHandler struct {
	db         *gorm.DB
	dispatcher *Dispatcher
	digest     *DigestGenerator
}

func NewNotificationHandler(db *gorm.DB, dispatcher *Dispatcher, digest *DigestGenerator) *NotificationHandler {
	return &NotificationHandler{
		db:         db,
		dispatcher: dispatcher,
		digest:     digest,
	}
}

// RegisterRoutes registers all notification routes
func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/devices", utils.AuthMiddleware(h.RegisterDevice)).Methods("POST")
	router.HandleFunc("/devices/{id}", utils.AuthMiddleware(h.DeleteDevice)).Methods("DELETE")
	router.HandleFunc("/users/{userId}/devices", utils.AuthMiddleware(h.GetUserDevices)).Methods("GET")
	router.HandleFunc("/users/{userId}/notifications", utils.AuthMiddleware(h.GetUserNotificationHistory)).Methods("GET")

	router.HandleFunc("/notifications/compose", utils.AdminMiddleware(h.ComposeNotification)).Methods("POST")
	router.HandleFunc("/notifications/retry-failed", utils.AdminMiddleware(h.RetryFailed)).Methods("POST")
	router.HandleFunc("/notifications/cancel-pending", utils.AdminMiddleware(h.CancelPending)).Methods("POST")
	router.HandleFunc("/notifications/dispatch", utils.AdminMiddleware(h.RunDispatch)).Methods("POST")
	router.HandleFunc("/notifications/digest", utils.AdminMiddleware(h.RunDigest)).Methods("POST")
}

// RegisterDevice stores a device push token for the calling user. Re-registering
// a token the provider previously retired reactivates it; automatic
// reactivation never happens elsewhere.
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token      string `json:"token"`
		DeviceName string `json:"device_name,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}
	if _, err := expo.NewExponentPushToken(req.Token); err != nil {
		http.Error(w, "Invalid Expo push token format", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var token models.PushToken
	result := h.db.Where("expo_push_token = ? AND user_id = ?", req.Token, userID).First(&token)
	if result.Error == nil {
		token.IsActive = true
		token.DeviceName = req.DeviceName
		if err := h.db.Save(&token).Error; err != nil {
			http.Error(w, "Error updating device", http.StatusInternalServerError)
			return
		}
	} else {
		token = models.PushToken{
			UserID:        userID,
			ExpoPushToken: req.Token,
			DeviceName:    req.DeviceName,
			IsActive:      true,
		}
		if err := h.db.Create(&token).Error; err != nil {
			http.Error(w, "Error registering device", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Device registered successfully",
		"device":  token,
	})
}

// GetUserDevices lists a user's registered devices.
func (h *NotificationHandler) GetUserDevices(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["userId"]
	if !utils.CanActOnUser(r, userID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var tokens []models.PushToken
	if err := h.db.Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
		http.Error(w, "Error retrieving devices", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokens)
}

// DeleteDevice removes a device token. Only the token's owner or an admin may
// remove it.
func (h *NotificationHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deviceID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid device ID", http.StatusBadRequest)
		return
	}

	var token models.PushToken
	if err := h.db.First(&token, deviceID).Error; err != nil {
		http.Error(w, "Device not found", http.StatusNotFound)
		return
	}

	callerID, err := utils.GetUserIDFromContext(r)
	if err != nil || (token.UserID != callerID && !utils.IsAdmin(r)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.db.Delete(&token).Error; err != nil {
		http.Error(w, "Error deleting device", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Device deleted successfully",
	})
}

// GetUserNotificationHistory is the mobile app's notification inbox: that
// user's queue entries, newest first, paginated.
func (h *NotificationHandler) GetUserNotificationHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["userId"]
	if !utils.CanActOnUser(r, userID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	limit := 20
	page := 1
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsedLimit, err := strconv.Atoi(limitParam); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		if parsedPage, err := strconv.Atoi(pageParam); err == nil && parsedPage > 0 {
			page = parsedPage
		}
	}
	offset := (page - 1) * limit

	var count int64
	if err := h.db.Model(&models.NotificationQueueEntry{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		http.Error(w, "Error counting notifications", http.StatusInternalServerError)
		return
	}

	var history []models.NotificationQueueEntry
	if err := h.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&history).Error; err != nil {
		http.Error(w, "Error retrieving notification history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total":   count,
		"page":    page,
		"limit":   limit,
		"history": history,
	})
}

// ComposeNotification enqueues a notification for the selected audience,
// optionally scheduled for a future time, and confirms the recipient count.
func (h *NotificationHandler) ComposeNotification(w http.ResponseWriter, r *http.Request) {
	var req models.ComposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	count, err := Compose(h.db, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":    fmt.Sprintf("Notification enqueued for %d recipients", count),
		"recipients": count,
	})
}

// RetryFailed moves every failed entry back to pending.
func (h *NotificationHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	affected, err := RetryFailed(h.db)
	if err != nil {
		http.Error(w, "Error retrying failed notifications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": fmt.Sprintf("%d failed notifications queued for retry", affected),
		"retried": affected,
	})
}

// CancelPending cancels every pending entry.
func (h *NotificationHandler) CancelPending(w http.ResponseWriter, r *http.Request) {
	affected, err := CancelPending(h.db)
	if err != nil {
		http.Error(w, "Error cancelling pending notifications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   fmt.Sprintf("%d pending notifications cancelled", affected),
		"cancelled": affected,
	})
}

// RunDispatch triggers a dispatch pass outside the schedule.
func (h *NotificationHandler) RunDispatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	result, err := h.dispatcher.Run(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// RunDigest triggers digest generation outside the schedule.
func (h *NotificationHandler) RunDigest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	result, err := h.digest.Run(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
