package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ballsim/backend/internal/sim"
	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL           string
	SnapshotTTLSeconds int

	// Server
	Port        string
	FrontendURL string

	// Security
	JWTSecret              string
	ControlTokenTTLMinutes int

	// Simulation
	SimPreset          string
	ArenaWidth         float64
	ArenaHeight        float64
	WallThickness      float64
	BallCount          int
	MaxBallCount       int
	SpeedMin           float64
	SpeedMax           float64
	RadiusMin          float64
	RadiusMax          float64
	StatsWindowSeconds float64
	TickRate           int
	BroadcastRate      int

	// Sessions
	SessionIdleMinutes int
	MaxSessions        int

	// Audio
	AudioEnabled        bool
	AudioMaxCueRate     float64
	AudioMuteAboveBalls int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	preset := getEnv("SIM_PRESET", string(sim.PresetDefault))
	base, err := sim.SettingsForPreset(sim.Preset(preset))
	if err != nil {
		base = sim.DefaultSettings()
	}

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL:           getEnv("REDIS_URL", ""),
		SnapshotTTLSeconds: getEnvInt("SNAPSHOT_TTL_SECONDS", 60),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Security
		JWTSecret:              getEnv("JWT_SECRET", "change-me-in-production"),
		ControlTokenTTLMinutes: getEnvInt("CONTROL_TOKEN_TTL_MINUTES", 60),

		// Simulation (preset supplies the defaults)
		SimPreset:          preset,
		ArenaWidth:         getEnvFloat("SIM_ARENA_WIDTH", base.Arena.Width),
		ArenaHeight:        getEnvFloat("SIM_ARENA_HEIGHT", base.Arena.Height),
		WallThickness:      getEnvFloat("SIM_WALL_THICKNESS", base.Arena.WallThickness),
		BallCount:          getEnvInt("SIM_BALL_COUNT", base.BallCount),
		MaxBallCount:       getEnvInt("SIM_MAX_BALL_COUNT", 1000),
		SpeedMin:           getEnvFloat("SIM_SPEED_MIN", base.SpeedMin),
		SpeedMax:           getEnvFloat("SIM_SPEED_MAX", base.SpeedMax),
		RadiusMin:          getEnvFloat("SIM_RADIUS_MIN", base.RadiusMin),
		RadiusMax:          getEnvFloat("SIM_RADIUS_MAX", base.RadiusMax),
		StatsWindowSeconds: getEnvFloat("SIM_STATS_WINDOW_SECONDS", base.StatsWindow.Seconds()),
		TickRate:           getEnvInt("SIM_TICK_RATE", 60),
		BroadcastRate:      getEnvInt("SIM_BROADCAST_RATE", 30),

		// Sessions
		SessionIdleMinutes: getEnvInt("SESSION_IDLE_MINUTES", 10),
		MaxSessions:        getEnvInt("MAX_SESSIONS", 32),

		// Audio
		AudioEnabled:        getEnvBool("AUDIO_ENABLED", true),
		AudioMaxCueRate:     getEnvFloat("AUDIO_MAX_CUE_RATE", 25),
		AudioMuteAboveBalls: getEnvInt("AUDIO_MUTE_ABOVE_BALLS", 40),
	}
}

// SimSettings builds the physics settings and validates them.
func (c *Config) SimSettings() (sim.Settings, error) {
	s := sim.Settings{
		Arena: sim.Arena{
			Width:         c.ArenaWidth,
			Height:        c.ArenaHeight,
			WallThickness: c.WallThickness,
		},
		BallCount:   c.BallCount,
		SpeedMin:    c.SpeedMin,
		SpeedMax:    c.SpeedMax,
		RadiusMin:   c.RadiusMin,
		RadiusMax:   c.RadiusMax,
		StatsWindow: time.Duration(c.StatsWindowSeconds * float64(time.Second)),
		Preset:      sim.Preset(c.SimPreset),
	}
	if err := s.Validate(); err != nil {
		return sim.Settings{}, fmt.Errorf("config: %w", err)
	}
	if err := c.CheckLimits(s); err != nil {
		return sim.Settings{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// CheckLimits rejects settings above the ball cap of this deployment.
func (c *Config) CheckLimits(s sim.Settings) error {
	if c.MaxBallCount > 0 && s.BallCount > c.MaxBallCount {
		return fmt.Errorf("%w: ball count %d above limit %d", sim.ErrInvalidSettings, s.BallCount, c.MaxBallCount)
	}
	return nil
}

// ManagerConfig returns the session manager knobs.
func (c *Config) ManagerConfig() sim.ManagerConfig {
	return sim.ManagerConfig{
		TickRate:      c.TickRate,
		BroadcastRate: c.BroadcastRate,
		MaxSessions:   c.MaxSessions,
		IdleTimeout:   time.Duration(c.SessionIdleMinutes) * time.Minute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
