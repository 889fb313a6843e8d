package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CineTrackHQ/CineTrack-server/cmd/api"
	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"github.com/CineTrackHQ/CineTrack-server/db"
	notification "github.com/CineTrackHQ/CineTrack-server/service/notifications"
	"gorm.io/gorm"
)

func main() {
	// Check for command-line arguments
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "dispatch":
			runDispatch(os.Args[2:])
			return
		case "digest":
			runDigest()
			return
		case "clear-db":
			runDatabaseClear()
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	// Start the server
	startServer()
}

func openDB() *gorm.DB {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	return DB
}

func closeDB(DB *gorm.DB) {
	sqlDB, _ := DB.DB()
	sqlDB.Close()
	log.Println("Database connection closed")
}

func runMigrations() {
	DB := openDB()
	defer closeDB(DB)
	log.Println("Connected to the database for migrations")

	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {

	migrations := map[interface{}]string{
		&models.User{}:                   "User",
		&models.Movie{}:                  "Movie",
		&models.OTTPlatform{}:            "OTTPlatform",
		&models.OTTRelease{}:             "OTTRelease",
		&models.WatchlistItem{}:          "WatchlistItem",
		&models.PushToken{}:              "PushToken",
		&models.NotificationQueueEntry{}: "NotificationQueueEntry",
	}

	log.Println("Starting database migrations...")
	for model, name := range migrations {
		log.Printf("Migrating %s table...", name)
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", name, err)
		}
		log.Printf("%s migration successful", name)
	}

	return nil
}

// runDispatch executes one dispatch pass and exits; "dispatch --recover" first
// parks stale claims left by a crashed run.
func runDispatch(args []string) {
	DB := openDB()
	defer closeDB(DB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dispatcher := notification.NewDispatcher(DB, notification.NewExpoGateway())

	if len(args) > 0 && args[0] == "--recover" {
		recovered, err := dispatcher.RecoverStale(ctx, notification.DefaultClaimGracePeriod)
		if err != nil {
			log.Fatalf("Stale claim recovery error: %v", err)
		}
		log.Printf("Recovered %d stale claims to failed", recovered)
	}

	result, err := dispatcher.Run(ctx)
	if err != nil {
		log.Fatalf("Dispatch error: %v", err)
	}
	log.Printf("Dispatch complete: processed=%d sent=%d failed=%d", result.Processed, result.Sent, result.Failed)
}

func runDigest() {
	DB := openDB()
	defer closeDB(DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := notification.NewDigestGenerator(DB).Run(ctx)
	if err != nil {
		log.Fatalf("Digest error: %v", err)
	}
	if result.Skipped {
		log.Printf("Digest skipped: %s", result.Reason)
		return
	}
	log.Printf("Digest enqueued for %d subscribers", result.Enqueued)
}

func startServer() {
	DB := openDB()
	defer closeDB(DB)
	log.Println("Connected to the database")

	// Graceful shutdown setup
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB)

	go func() {
		if err := server.Run(ctx); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", port)

	<-ctx.Done()
	log.Println("Shutting down server...")
}

func runDatabaseClear() {
	DB := openDB()
	defer closeDB(DB)

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	tables := []interface{}{
		&models.NotificationQueueEntry{},
		&models.PushToken{},
		&models.WatchlistItem{},
		&models.OTTRelease{},
		&models.OTTPlatform{},
		&models.Movie{},
		&models.User{},
	}

	log.Println("Dropping tables...")
	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	log.Println("Database cleared successfully")
}
