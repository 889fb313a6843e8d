package api

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/CineTrackHQ/CineTrack-server/service/dashboard"
	"github.com/CineTrackHQ/CineTrack-server/service/movies"
	notification "github.com/CineTrackHQ/CineTrack-server/service/notifications"
	"github.com/CineTrackHQ/CineTrack-server/service/ott"
	"github.com/CineTrackHQ/CineTrack-server/service/user"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

// Run wires the services, starts the notification scheduler, and serves until
// the process exits. ctx stops the scheduler loops on shutdown.
func (s *APIServer) Run(ctx context.Context) error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	movieHandler := movies.NewMovieHandler(s.db)
	movieHandler.RegisterRoutes(subrouter)

	ottHandler := ott.NewOTTHandler(s.db)
	ottHandler.RegisterRoutes(subrouter)

	dispatcher := notification.NewDispatcher(s.db, notification.NewExpoGateway())
	digest := notification.NewDigestGenerator(s.db)

	notificationHandler := notification.NewNotificationHandler(s.db, dispatcher, digest)
	notificationHandler.RegisterRoutes(subrouter)

	dashboardHandler := dashboard.NewDashboardHandler(s.db)
	dashboardHandler.RegisterRoutes(subrouter)

	scheduler := notification.NewScheduler(dispatcher, digest)
	scheduler.Start(ctx)

	// The admin dashboard is a browser app on another origin.
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, handlers.LoggingHandler(os.Stdout, cors(router)))
}
