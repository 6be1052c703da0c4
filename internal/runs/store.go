package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ballsim/backend/internal/models"
	"github.com/ballsim/backend/internal/sim"
	"github.com/jmoiron/sqlx"
)

// Store persists simulation runs and their rolled collision rates.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// settingsDoc is the JSONB shape of a run's settings.
type settingsDoc struct {
	ArenaWidth    float64 `json:"arena_width"`
	ArenaHeight   float64 `json:"arena_height"`
	WallThickness float64 `json:"wall_thickness"`
	BallCount     int     `json:"ball_count"`
	SpeedMin      float64 `json:"speed_min"`
	SpeedMax      float64 `json:"speed_max"`
	RadiusMin     float64 `json:"radius_min"`
	RadiusMax     float64 `json:"radius_max"`
	StatsWindow   float64 `json:"stats_window_seconds"`
}

func encodeSettings(s sim.Settings) ([]byte, error) {
	return json.Marshal(settingsDoc{
		ArenaWidth:    s.Arena.Width,
		ArenaHeight:   s.Arena.Height,
		WallThickness: s.Arena.WallThickness,
		BallCount:     s.BallCount,
		SpeedMin:      s.SpeedMin,
		SpeedMax:      s.SpeedMax,
		RadiusMin:     s.RadiusMin,
		RadiusMax:     s.RadiusMax,
		StatsWindow:   s.StatsWindow.Seconds(),
	})
}

// DecodeSettings rebuilds settings from a stored run, e.g. to replay it with its seed.
func DecodeSettings(run models.SimulationRun) (sim.Settings, error) {
	var doc settingsDoc
	if err := json.Unmarshal(run.Settings, &doc); err != nil {
		return sim.Settings{}, fmt.Errorf("decode settings of run %s: %w", run.ID, err)
	}
	s := sim.Settings{
		Arena: sim.Arena{
			Width:         doc.ArenaWidth,
			Height:        doc.ArenaHeight,
			WallThickness: doc.WallThickness,
		},
		BallCount:   doc.BallCount,
		SpeedMin:    doc.SpeedMin,
		SpeedMax:    doc.SpeedMax,
		RadiusMin:   doc.RadiusMin,
		RadiusMax:   doc.RadiusMax,
		StatsWindow: time.Duration(doc.StatsWindow * float64(time.Second)),
		Preset:      sim.Preset(run.Preset),
	}
	return s, s.Validate()
}

func (s *Store) CreateRun(ctx context.Context, run sim.RunInfo) error {
	settings, err := encodeSettings(run.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO simulation_runs (id, preset, seed, settings, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, string(run.Settings.Preset), run.Seed, settings, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	log.Printf("[DB] Recorded run %s (preset=%s seed=%d)", run.ID, run.Settings.Preset, run.Seed)
	return nil
}

func (s *Store) RecordSample(ctx context.Context, simID string, ballCount int, stats sim.Stats) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collision_samples (run_id, ball_count, ball_rate, wall_rate) VALUES ($1, $2, $3, $4)`,
		simID, ballCount, stats.BallCollisionsPerSec, stats.WallCollisionsPerSec)
	if err != nil {
		return fmt.Errorf("insert sample for %s: %w", simID, err)
	}
	return nil
}

func (s *Store) EndRun(ctx context.Context, simID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE simulation_runs SET ended_at = NOW() WHERE id = $1 AND ended_at IS NULL`, simID)
	if err != nil {
		return fmt.Errorf("end run %s: %w", simID, err)
	}
	return nil
}

// GetRun loads one run; sql.ErrNoRows is wrapped when it does not exist.
func (s *Store) GetRun(ctx context.Context, simID string) (models.SimulationRun, error) {
	var run models.SimulationRun
	err := s.db.GetContext(ctx, &run,
		`SELECT id, preset, seed, settings, created_at, ended_at FROM simulation_runs WHERE id = $1`, simID)
	if err != nil {
		return run, fmt.Errorf("get run %s: %w", simID, err)
	}
	return run, nil
}

// ListSamples returns the newest samples of a run, oldest first.
func (s *Store) ListSamples(ctx context.Context, simID string, limit int) ([]models.CollisionSample, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	samples := []models.CollisionSample{}
	err := s.db.SelectContext(ctx, &samples, `
		SELECT id, run_id, ball_count, ball_rate, wall_rate, sampled_at FROM (
			SELECT * FROM collision_samples WHERE run_id = $1 ORDER BY sampled_at DESC, id DESC LIMIT $2
		) recent ORDER BY sampled_at ASC, id ASC`, simID, limit)
	if err != nil {
		return nil, fmt.Errorf("list samples for %s: %w", simID, err)
	}
	return samples, nil
}
