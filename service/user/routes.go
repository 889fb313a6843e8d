package user

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"github.com/CineTrackHQ/CineTrack-server/cmd/utils"
	notification "github.com/CineTrackHQ/CineTrack-server/service/notifications"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// RegisterRoutes sets up all user-related routes. Account creation and login
// live in the identity service; these endpoints manage the app profile keyed by
// the identity-issued user id.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users", utils.AdminMiddleware(h.GetUsers)).Methods("GET")
	router.HandleFunc("/users", h.CreateUser).Methods("POST")
	router.HandleFunc("/users/{id}", utils.AuthMiddleware(h.GetUser)).Methods("GET")
	router.HandleFunc("/users/{id}", utils.AuthMiddleware(h.UpdateUser)).Methods("PUT")
	router.HandleFunc("/users/{id}/watchlist", utils.AuthMiddleware(h.GetWatchlist)).Methods("GET")
	router.HandleFunc("/users/{id}/watchlist", utils.AuthMiddleware(h.AddToWatchlist)).Methods("POST")
	router.HandleFunc("/users/{id}/watchlist/{movieId}", utils.AuthMiddleware(h.RemoveFromWatchlist)).Methods("DELETE")
}

// GetUsers lists profiles for the admin dashboard.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	limit := 50
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

	var users []models.User
	if err := h.db.Order("id").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&users).Error; err != nil {
		http.Error(w, "Error retrieving users", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

// CreateUser creates the app profile for a freshly signed-up identity.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if user.Email == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	if err := h.db.Create(&user).Error; err != nil {
		http.Error(w, "Error creating user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !utils.CanActOnUser(r, vars["id"]) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var user models.User
	if err := h.db.First(&user, vars["id"]).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// UpdateUser updates profile fields, most importantly the weekly digest opt-in.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !utils.CanActOnUser(r, vars["id"]) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var user models.User
	if err := h.db.First(&user, vars["id"]).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	var updates struct {
		FullName         *string `json:"full_name"`
		DigestSubscribed *bool   `json:"digest_subscribed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if updates.FullName != nil {
		user.FullName = *updates.FullName
	}
	if updates.DigestSubscribed != nil {
		user.DigestSubscribed = *updates.DigestSubscribed
	}

	if err := h.db.Save(&user).Error; err != nil {
		http.Error(w, "Error updating user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !utils.CanActOnUser(r, vars["id"]) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var items []models.WatchlistItem
	if err := h.db.Preload("Movie").
		Where("user_id = ?", vars["id"]).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		http.Error(w, "Error retrieving watchlist", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// AddToWatchlist saves the movie and schedules its release reminders.
func (h *Handler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !utils.CanActOnUser(r, vars["id"]) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req struct {
		MovieID uint `json:"movie_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var movie models.Movie
	if err := h.db.First(&movie, req.MovieID).Error; err != nil {
		http.Error(w, "Movie not found", http.StatusNotFound)
		return
	}

	item := models.WatchlistItem{
		UserID:  uint(userID),
		MovieID: movie.ID,
	}
	if err := h.db.Create(&item).Error; err != nil {
		http.Error(w, "Movie already on watchlist", http.StatusConflict)
		return
	}

	reminders, err := notification.EnqueueWatchlistReminders(h.db, uint(userID), &movie)
	if err != nil {
		log.Printf("Error enqueueing watchlist reminders for user %d movie %d: %v", userID, movie.ID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   fmt.Sprintf("Added to watchlist, %d reminders scheduled", reminders),
		"watchlist": item,
	})
}

func (h *Handler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !utils.CanActOnUser(r, vars["id"]) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	result := h.db.Where("user_id = ? AND movie_id = ?", vars["id"], vars["movieId"]).
		Delete(&models.WatchlistItem{})
	if result.Error != nil {
		http.Error(w, "Error removing from watchlist", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Watchlist item not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Removed from watchlist",
	})
}
