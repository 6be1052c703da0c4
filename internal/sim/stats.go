package sim

import "time"

// Stats holds the collision counters. Rates are recomputed and the window counters
// reset every StatsWindow of simulated time.
type Stats struct {
	BallCollisions       int     `json:"ball_collisions" msgpack:"ball_collisions"`
	WallCollisions       int     `json:"wall_collisions" msgpack:"wall_collisions"`
	BallCollisionsPerSec float64 `json:"ball_collisions_per_sec" msgpack:"ball_collisions_per_sec"`
	WallCollisionsPerSec float64 `json:"wall_collisions_per_sec" msgpack:"wall_collisions_per_sec"`
	TotalBallCollisions  int64   `json:"total_ball_collisions" msgpack:"total_ball_collisions"`
	TotalWallCollisions  int64   `json:"total_wall_collisions" msgpack:"total_wall_collisions"`
	WindowElapsed        float64 `json:"window_elapsed" msgpack:"window_elapsed"`
}

// roll accumulates dt and closes the window once it reaches window. It reports
// whether the rates were recomputed.
func (s *Stats) roll(dt float64, window time.Duration) bool {
	s.WindowElapsed += dt
	if s.WindowElapsed < window.Seconds() || s.WindowElapsed <= 0 {
		return false
	}
	s.BallCollisionsPerSec = float64(s.BallCollisions) / s.WindowElapsed
	s.WallCollisionsPerSec = float64(s.WallCollisions) / s.WindowElapsed
	s.BallCollisions = 0
	s.WallCollisions = 0
	s.WindowElapsed = 0
	return true
}

func (s *Stats) count(kind CollisionKind) {
	switch kind {
	case KindBall:
		s.BallCollisions++
		s.TotalBallCollisions++
	case KindWall:
		s.WallCollisions++
		s.TotalWallCollisions++
	}
}
