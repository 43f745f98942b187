package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kevin-webdesign/smart-farm/internal/ai"
	"github.com/Kevin-webdesign/smart-farm/internal/database"
	"github.com/Kevin-webdesign/smart-farm/internal/handlers"
	"github.com/Kevin-webdesign/smart-farm/internal/notify"
	"github.com/Kevin-webdesign/smart-farm/internal/routes"
	"github.com/joho/godotenv"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// 1. --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 2. --- AI Service Initialization ---
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		log.Fatal("CRITICAL ERROR: GEMINI_API_KEY environment variable is not set.")
	}

	aiService, err := ai.NewAIService(geminiKey, db)
	if err != nil {
		log.Fatalf("Failed to initialize AI Service: %v", err)
	}
	defer aiService.Client.Close()

	// 3. --- Notification Trigger Service ---
	notifyService := notify.NewService(db)

	// 4. --- Background Scheduler ---
	scheduler := notify.NewScheduler(notifyService)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// --- Application Setup ---
	app := &handlers.Handlers{
		DB:        db,
		AIService: aiService,
		Notify:    notifyService,
	}

	// --- Router & Server Setup ---
	router := routes.SetupRouter(app)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// --- Start Server ---
	go func() {
		log.Printf("Starting Smart Farm API server on port %s...", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	// Wait for SIGINT/SIGTERM, then drain HTTP before the deferred scheduler
	// stop and DB close run.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
