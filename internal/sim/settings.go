package sim

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Preset selects how Spawn draws new balls.
type Preset string

const (
	PresetDefault  Preset = "default"
	PresetBrownian Preset = "brownian"
)

// Default arena and ball parameters.
const (
	DefaultArenaWidth    = 600.0
	DefaultArenaHeight   = 600.0
	DefaultWallThickness = 30.0
	DefaultBallCount     = 15
	DefaultSpeedMin      = 50.0
	DefaultSpeedMax      = 350.0
	DefaultRadiusMin     = 5.0
	DefaultRadiusMax     = 25.0
	DefaultStatsWindow   = 3 * time.Second

	BrownianBallCount = 600
	BrownianSpeedMin  = 1000.0
	BrownianSpeedMax  = 2000.0
	BrownianRadiusMin = 1.0
	BrownianRadiusMax = 25.0

	// Upper limits accepted by Validate.
	MaxBallCount = 5000
	MaxArenaSide = 20000.0

	// brownianHeavyOdds is the 1-in-N chance of spawning a stationary heavy ball.
	brownianHeavyOdds = 100
)

var ErrInvalidSettings = errors.New("invalid simulation settings")

// Arena is the walled rectangle balls live in. Walls are WallThickness wide on every side.
type Arena struct {
	Width         float64 `json:"width" msgpack:"width"`
	Height        float64 `json:"height" msgpack:"height"`
	WallThickness float64 `json:"wall_thickness" msgpack:"wall_thickness"`
}

// Settings is fixed for the lifetime of a Simulation.
type Settings struct {
	Arena       Arena         `json:"arena"`
	BallCount   int           `json:"ball_count"`
	SpeedMin    float64       `json:"speed_min"`
	SpeedMax    float64       `json:"speed_max"`
	RadiusMin   float64       `json:"radius_min"`
	RadiusMax   float64       `json:"radius_max"`
	StatsWindow time.Duration `json:"stats_window"`
	Preset      Preset        `json:"preset"`
}

// DefaultSettings returns the 15-ball 600x600 configuration.
func DefaultSettings() Settings {
	return Settings{
		Arena: Arena{
			Width:         DefaultArenaWidth,
			Height:        DefaultArenaHeight,
			WallThickness: DefaultWallThickness,
		},
		BallCount:   DefaultBallCount,
		SpeedMin:    DefaultSpeedMin,
		SpeedMax:    DefaultSpeedMax,
		RadiusMin:   DefaultRadiusMin,
		RadiusMax:   DefaultRadiusMax,
		StatsWindow: DefaultStatsWindow,
		Preset:      PresetDefault,
	}
}

// BrownianSettings returns the many-small-fast-balls configuration: a few heavy
// stationary balls get kicked around by a swarm of light ones.
func BrownianSettings() Settings {
	s := DefaultSettings()
	s.BallCount = BrownianBallCount
	s.SpeedMin = BrownianSpeedMin
	s.SpeedMax = BrownianSpeedMax
	s.RadiusMin = BrownianRadiusMin
	s.RadiusMax = BrownianRadiusMax
	s.Preset = PresetBrownian
	return s
}

// SettingsForPreset returns the base settings for a named preset.
func SettingsForPreset(p Preset) (Settings, error) {
	switch p {
	case "", PresetDefault:
		return DefaultSettings(), nil
	case PresetBrownian:
		return BrownianSettings(), nil
	default:
		return Settings{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidSettings, p)
	}
}

// MaxMass is the mass of a ball at RadiusMax; intensities are normalized by it.
func (s Settings) MaxMass() float64 {
	return MassForRadius(s.RadiusMax)
}

// Validate reports configurations that would make spawning undefined.
// The simulation itself never calls it.
func (s Settings) Validate() error {
	switch {
	case s.Arena.Width <= 0 || s.Arena.Height <= 0:
		return fmt.Errorf("%w: arena must have positive size", ErrInvalidSettings)
	case s.Arena.Width > MaxArenaSide || s.Arena.Height > MaxArenaSide:
		return fmt.Errorf("%w: arena larger than %g", ErrInvalidSettings, MaxArenaSide)
	case s.Arena.WallThickness < 0:
		return fmt.Errorf("%w: wall thickness must not be negative", ErrInvalidSettings)
	case s.RadiusMin <= 0 || s.RadiusMin > s.RadiusMax:
		return fmt.Errorf("%w: radius range [%g,%g]", ErrInvalidSettings, s.RadiusMin, s.RadiusMax)
	case s.SpeedMin < 0 || s.SpeedMin > s.SpeedMax:
		return fmt.Errorf("%w: speed range [%g,%g]", ErrInvalidSettings, s.SpeedMin, s.SpeedMax)
	case s.BallCount < 0 || s.BallCount > MaxBallCount:
		return fmt.Errorf("%w: ball count %d", ErrInvalidSettings, s.BallCount)
	case s.StatsWindow <= 0:
		return fmt.Errorf("%w: stats window must be positive", ErrInvalidSettings)
	}
	inner := 2 * (s.Arena.WallThickness + s.RadiusMax)
	if inner > s.Arena.Width || inner > s.Arena.Height || math.IsNaN(inner) {
		return fmt.Errorf("%w: arena too small for radius %g", ErrInvalidSettings, s.RadiusMax)
	}
	if _, err := SettingsForPreset(s.Preset); err != nil {
		return err
	}
	return nil
}
