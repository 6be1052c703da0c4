package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ballsim/backend/internal/api"
	"github.com/ballsim/backend/internal/config"
	"github.com/ballsim/backend/internal/database"
	"github.com/ballsim/backend/internal/migrations"
	"github.com/ballsim/backend/internal/redis"
	"github.com/ballsim/backend/internal/runs"
	"github.com/ballsim/backend/internal/sim"
	"github.com/ballsim/backend/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()
	if _, err := cfg.SimSettings(); err != nil {
		log.Fatalf("Invalid simulation settings: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	sinks := sim.Sinks{Broadcaster: hub, Notifier: hub}
	deps := api.Deps{Hub: hub}

	// PostgreSQL is optional; without it runs are not recorded
	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}

		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		store := runs.NewStore(db)
		sinks.Recorder = store
		deps.Samples = store
		log.Println("[DB] Run recording enabled")
	} else {
		log.Println("[DB] DATABASE_URL not set; runs will not be recorded")
	}

	// Redis is optional; without it notices stay on this instance
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()

		publisher := redis.NewPublisher(rdb, time.Duration(cfg.SnapshotTTLSeconds)*time.Second)
		sinks.Notifier = publisher
		sinks.Snapshots = publisher
		deps.Snapshots = publisher
		ws.StartEventSubscriber(ctx, rdb, hub)
	} else {
		log.Println("[REDIS] REDIS_URL not set; notices are delivered locally only")
	}

	manager := sim.NewSessionManager(ctx, cfg.ManagerConfig(), sinks)
	manager.StartIdleReaper(ctx, time.Minute)
	deps.Manager = manager

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, deps, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Starting ballsim server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	manager.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
