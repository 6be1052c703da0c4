package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/ballsim/backend/internal/config"
	"github.com/ballsim/backend/internal/database"
	"github.com/ballsim/backend/internal/runs"
	"github.com/ballsim/backend/internal/sim"
	"github.com/joho/godotenv"
)

// replay re-runs a recorded simulation headless from its seed and settings and
// prints the collision rates of every stats window next to the recorded ones.
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	runID := os.Getenv("RUN_ID")
	if runID == "" {
		log.Fatalf("RUN_ID is required")
	}
	seconds := 30.0
	if v := os.Getenv("REPLAY_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			seconds = f
		}
	}

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	store := runs.NewStore(db)
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		log.Fatalf("Failed to load run: %v", err)
	}
	settings, err := runs.DecodeSettings(run)
	if err != nil {
		log.Fatalf("Stored settings are unusable: %v", err)
	}
	recorded, err := store.ListSamples(ctx, runID, 1000)
	if err != nil {
		log.Printf("[DB] Could not load recorded samples: %v", err)
	}

	log.Printf("Replaying %s (preset=%s seed=%d balls=%d) for %.0fs", run.ID, run.Preset, run.Seed, settings.BallCount, seconds)

	// Live sessions tick on wall-clock dt, so the replayed rates only track the
	// recorded ones; no window is expected to match exactly.
	s := sim.New(settings, sim.NewRand(run.Seed))
	dt := 1.0 / float64(max(cfg.TickRate, 1))
	window := 0
	for t := 0.0; t < seconds; t += dt {
		frame := s.Step(dt)
		if !frame.StatsRolled {
			continue
		}
		line := "replayed ball=%6.1f/s wall=%6.1f/s"
		args := []interface{}{frame.Stats.BallCollisionsPerSec, frame.Stats.WallCollisionsPerSec}
		if window < len(recorded) {
			line += "  recorded ball=%6.1f/s wall=%6.1f/s"
			args = append(args, recorded[window].BallRate, recorded[window].WallRate)
		}
		log.Printf("window %3d  "+line, append([]interface{}{window + 1}, args...)...)
		window++
	}

	stats := s.Stats()
	log.Printf("✓ Replay finished: %d windows, %d ball and %d wall collisions in total",
		window, stats.TotalBallCollisions, stats.TotalWallCollisions)
}
