/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Caisse Settlement Engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Build settlement and refund services
  4. Configure HTTP router and start the status scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080, env PORT)
  -db        SQLite database path (default: caisse.db, env DATABASE_PATH)
             Use ":memory:" for an in-memory database
  -settings  JSON settings file with penalty rules and advance bounds;
             omit for built-in defaults (env SETTINGS_PATH)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the status scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/caisse.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run with custom penalty configuration
  ./server -settings="./settings.json"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/caisse-engine/api"
	"github.com/warp/caisse-engine/caisse"
	"github.com/warp/caisse-engine/store/sqlite"
)

func main() {
	// .env is optional; flags override environment.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "caisse.db"), "SQLite database path")
	settingsPath := flag.String("settings", envStr("SETTINGS_PATH", ""), "JSON settings file (empty for defaults)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Settings
	settings := caisse.DefaultSettings()
	if *settingsPath != "" {
		data, err := os.ReadFile(*settingsPath)
		if err != nil {
			log.Fatalf("Failed to read settings file: %v", err)
		}
		settings, err = caisse.SettingsFromJSON(data)
		if err != nil {
			log.Fatalf("Failed to parse settings file: %v", err)
		}
	}

	// Services and handler
	settlements := caisse.NewSettlementService(store, settings)
	refunds := caisse.NewRefundService(store)
	handler := api.NewHandler(settlements, refunds)

	// Create router
	router := api.NewRouter(handler)

	// Time-driven status transitions (lateness, default) are persisted by
	// the scheduler, not by request handling.
	scheduler := api.NewStatusScheduler(settlements)
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
