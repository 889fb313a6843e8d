package movies

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"github.com/CineTrackHQ/CineTrack-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type MovieHandler struct {
	db *gorm.DB
}

func NewMovieHandler(db *gorm.DB) *MovieHandler {
	return &MovieHandler{db: db}
}

func (h *MovieHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/movies", h.GetMovies).Methods("GET")
	router.HandleFunc("/movies/upcoming", h.GetUpcomingMovies).Methods("GET")
	router.HandleFunc("/movies/{id}", h.GetMovie).Methods("GET")
	router.HandleFunc("/movies", utils.AdminMiddleware(h.CreateMovie)).Methods("POST")
	router.HandleFunc("/movies/{id}", utils.AdminMiddleware(h.UpdateMovie)).Methods("PUT")
	router.HandleFunc("/movies/{id}", utils.AdminMiddleware(h.DeleteMovie)).Methods("DELETE")
}

// GetMovies lists the catalog, paginated, newest release first.
func (h *MovieHandler) GetMovies(w http.ResponseWriter, r *http.Request) {
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

	query := h.db
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var count int64
	if err := query.Model(&models.Movie{}).Count(&count).Error; err != nil {
		http.Error(w, "Error counting movies", http.StatusInternalServerError)
		return
	}

	var movies []models.Movie
	if err := query.Order("release_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&movies).Error; err != nil {
		http.Error(w, "Error retrieving movies", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total":  count,
		"page":   page,
		"limit":  limit,
		"movies": movies,
	})
}

// GetUpcomingMovies returns non-cancelled theatrical releases in the next seven
// days, the same window the weekly digest reads.
func (h *MovieHandler) GetUpcomingMovies(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	var movies []models.Movie
	if err := h.db.Where("release_date >= ? AND release_date < ? AND status <> ?",
		now, now.AddDate(0, 0, 7), models.MovieStatusCancelled).
		Order("release_date, title").
		Find(&movies).Error; err != nil {
		http.Error(w, "Error retrieving upcoming movies", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(movies)
}

func (h *MovieHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var movie models.Movie
	if err := h.db.Preload("OTTReleases.Platform").First(&movie, vars["id"]).Error; err != nil {
		http.Error(w, "Movie not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(movie)
}

func (h *MovieHandler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	var movie models.Movie
	if err := json.NewDecoder(r.Body).Decode(&movie); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if movie.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	if movie.Status == "" {
		movie.Status = models.MovieStatusUpcoming
	}

	if err := h.db.Create(&movie).Error; err != nil {
		http.Error(w, "Error creating movie", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(movie)
}

func (h *MovieHandler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var movie models.Movie
	if err := h.db.First(&movie, vars["id"]).Error; err != nil {
		http.Error(w, "Movie not found", http.StatusNotFound)
		return
	}

	var updates models.Movie
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	movie.Title = updates.Title
	movie.Synopsis = updates.Synopsis
	movie.PosterURL = updates.PosterURL
	movie.Genres = updates.Genres
	movie.ReleaseDate = updates.ReleaseDate
	if updates.Status != "" {
		movie.Status = updates.Status
	}

	if err := h.db.Save(&movie).Error; err != nil {
		http.Error(w, "Error updating movie", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(movie)
}

func (h *MovieHandler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	movieID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid movie ID", http.StatusBadRequest)
		return
	}

	result := h.db.Delete(&models.Movie{}, movieID)
	if result.Error != nil {
		http.Error(w, "Error deleting movie", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Movie not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Movie deleted successfully",
	})
}
