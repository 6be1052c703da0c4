package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// SimulationRun is one simulation created through the API
type SimulationRun struct {
	ID        string          `db:"id" json:"id"`
	Preset    string          `db:"preset" json:"preset"`
	Seed      int64           `db:"seed" json:"seed"`
	Settings  json.RawMessage `db:"settings" json:"settings"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	EndedAt   sql.NullTime    `db:"ended_at" json:"ended_at,omitempty"`
}

// CollisionSample is the rate pair recorded when a stats window closes
type CollisionSample struct {
	ID        int       `db:"id" json:"id"`
	RunID     string    `db:"run_id" json:"run_id"`
	BallCount int       `db:"ball_count" json:"ball_count"`
	BallRate  float64   `db:"ball_rate" json:"ball_rate"`
	WallRate  float64   `db:"wall_rate" json:"wall_rate"`
	SampledAt time.Time `db:"sampled_at" json:"sampled_at"`
}
