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

	"github.com/gin-gonic/gin"

	"reqsharp/feedback-service/internal/api"
	"reqsharp/feedback-service/internal/config"
	"reqsharp/feedback-service/internal/notifier"
	"reqsharp/feedback-service/internal/repository/postgres"
	"reqsharp/feedback-service/internal/service"
	"reqsharp/feedback-service/internal/storage"
)

func main() {
	log.Println("Starting Feedback Service...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	pool, err := postgres.Connect(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to Postgres: %v", err)
	}
	defer func() {
		log.Println("Closing database pool...")
		pool.Close()
	}()
	log.Println("Database connection established.")

	// Schema must exist before the first request; run blocking.
	ctxSchema, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := postgres.EnsureSchema(ctxSchema, pool); err != nil {
		cancelSchema()
		log.Fatalf("FATAL: Could not ensure database schema: %v", err)
	}
	cancelSchema()
	log.Println("Database schema ensured.")

	// --- Initialize Storage ---
	log.Println("Initializing attachment store...")
	store, err := storage.NewDiskStore(cfg.Storage.RootDir, cfg.Storage.MaxFileSizeBytes, cfg.Storage.AllowedExtensions)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize attachment store: %v", err)
	}
	defer store.Close()

	// --- Initialize Notifier ---
	var mailNotifier notifier.Notifier = notifier.NoopNotifier{}
	if cfg.Mail.Host != "" {
		mailNotifier = notifier.NewMailNotifier(cfg.Mail, store)
		log.Printf("Mail notifier configured for %s:%d", cfg.Mail.Host, cfg.Mail.Port)
	} else {
		log.Println("Mail host not configured; notifications disabled.")
	}

	// --- Initialize Repositories ---
	feedbackRepo := postgres.NewFeedbackRepository(pool)
	requirementRepo := postgres.NewRequirementAttachmentRepository(pool)

	// --- Initialize Services ---
	feedbackService := service.NewFeedbackService(feedbackRepo, store, mailNotifier,
		cfg.Storage.MaxFilesPerUpload, cfg.Storage.CleanupDelay)
	requirementService := service.NewRequirementService(requirementRepo, store,
		cfg.Storage.MaxFilesPerUpload)

	// --- Initialize Gin Engine ---
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	pingDB := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
	api.SetupRoutes(router, cfg.JWT.Secret, api.AllowAllPolicy{}, feedbackService, requirementService, pingDB)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  30 * time.Second, // multipart uploads need headroom
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
