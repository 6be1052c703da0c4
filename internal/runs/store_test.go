package runs

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ballsim/backend/internal/database"
	"github.com/ballsim/backend/internal/migrations"
	"github.com/ballsim/backend/internal/models"
	"github.com/ballsim/backend/internal/sim"
)

var _ sim.Recorder = (*Store)(nil)

func TestSettingsRoundTripThroughJSONB(t *testing.T) {
	for _, want := range []sim.Settings{sim.DefaultSettings(), sim.BrownianSettings()} {
		raw, err := encodeSettings(want)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeSettings(models.SimulationRun{ID: "sim_x", Preset: string(want.Preset), Settings: raw})
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	}
}

func TestDecodeSettingsRejectsGarbage(t *testing.T) {
	_, err := DecodeSettings(models.SimulationRun{ID: "sim_x", Settings: []byte("{")})
	if err == nil {
		t.Fatal("expected decode error")
	}
	_, err = DecodeSettings(models.SimulationRun{ID: "sim_x", Preset: "default", Settings: []byte(`{"ball_count":3}`)})
	if !errors.Is(err, sim.ErrInvalidSettings) {
		t.Errorf("err = %v, want ErrInvalidSettings", err)
	}
}

// TestStoreAgainstPostgres needs TEST_DATABASE_URL and a migrations directory
// reachable from the package directory.
func TestStoreAgainstPostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := os.Chdir("../.."); err != nil {
		t.Fatal(err)
	}
	if err := migrations.RunMigrations(url); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := database.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)
	id := "sim_test_" + time.Now().Format("150405.000000")
	settings := sim.DefaultSettings()
	if err := store.CreateRun(ctx, sim.RunInfo{ID: id, Seed: 7, Settings: settings, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	for i := 1; i <= 3; i++ {
		stats := sim.Stats{BallCollisionsPerSec: float64(i), WallCollisionsPerSec: float64(10 * i)}
		if err := store.RecordSample(ctx, id, 15, stats); err != nil {
			t.Fatalf("RecordSample: %v", err)
		}
	}
	if err := store.EndRun(ctx, id); err != nil {
		t.Fatalf("EndRun: %v", err)
	}

	samples, err := store.ListSamples(ctx, id, 2)
	if err != nil {
		t.Fatalf("ListSamples: %v", err)
	}
	if len(samples) != 2 || samples[0].BallRate != 2 || samples[1].BallRate != 3 {
		t.Errorf("samples = %+v, want the last two in order", samples)
	}

	run, err := store.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !run.EndedAt.Valid || run.Seed != 7 {
		t.Errorf("run = %+v", run)
	}
	if got, err := DecodeSettings(run); err != nil || got != settings {
		t.Errorf("decoded settings = %+v, %v", got, err)
	}

	if _, err := store.GetRun(ctx, "sim_missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing run err = %v, want sql.ErrNoRows", err)
	}
}
