package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ballsim/backend/internal/config"
	"github.com/ballsim/backend/internal/middleware"
	"github.com/ballsim/backend/internal/models"
	simredis "github.com/ballsim/backend/internal/redis"
	"github.com/ballsim/backend/internal/sim"
	"github.com/gin-gonic/gin"
)

// SnapshotLoader reads cached state of simulations owned by other instances.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, simID string) (sim.Snapshot, error)
}

// SampleLister reads recorded collision rates.
type SampleLister interface {
	ListSamples(ctx context.Context, simID string, limit int) ([]models.CollisionSample, error)
}

// CreateSimulationRequest overrides the configured settings. Every field is optional.
type CreateSimulationRequest struct {
	Seed          *int64   `json:"seed"`
	Preset        string   `json:"preset"`
	BallCount     *int     `json:"ball_count"`
	ArenaWidth    *float64 `json:"arena_width"`
	ArenaHeight   *float64 `json:"arena_height"`
	WallThickness *float64 `json:"wall_thickness"`
	SpeedMin      *float64 `json:"speed_min"`
	SpeedMax      *float64 `json:"speed_max"`
	RadiusMin     *float64 `json:"radius_min"`
	RadiusMax     *float64 `json:"radius_max"`
}

// settings applies the request on top of the server defaults, or on top of the
// named preset when one is given.
func (r CreateSimulationRequest) settings(cfg *config.Config) (sim.Settings, error) {
	var base sim.Settings
	var err error
	if r.Preset != "" {
		base, err = sim.SettingsForPreset(sim.Preset(r.Preset))
	} else {
		base, err = cfg.SimSettings()
	}
	if err != nil {
		return base, err
	}

	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setInt(&base.BallCount, r.BallCount)
	setFloat(&base.Arena.Width, r.ArenaWidth)
	setFloat(&base.Arena.Height, r.ArenaHeight)
	setFloat(&base.Arena.WallThickness, r.WallThickness)
	setFloat(&base.SpeedMin, r.SpeedMin)
	setFloat(&base.SpeedMax, r.SpeedMax)
	setFloat(&base.RadiusMin, r.RadiusMin)
	setFloat(&base.RadiusMax, r.RadiusMax)
	if err := base.Validate(); err != nil {
		return base, err
	}
	return base, cfg.CheckLimits(base)
}

// CreateSimulation starts a simulation and hands back the token that controls it
func CreateSimulation(mgr *sim.SessionManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateSimulationRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
		}

		settings, err := req.settings(cfg)
		if err != nil {
			abortWithError(c, err)
			return
		}
		seed := time.Now().UnixNano()
		if req.Seed != nil {
			seed = *req.Seed
		}

		sess, err := mgr.Create(c.Request.Context(), settings, seed)
		if err != nil {
			abortWithError(c, err)
			return
		}

		ttl := time.Duration(cfg.ControlTokenTTLMinutes) * time.Minute
		token, err := middleware.IssueControlToken(cfg.JWTSecret, sess.ID, ttl)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Header("X-Sim-ID", sess.ID)
		c.JSON(http.StatusCreated, gin.H{
			"id":            sess.ID,
			"seed":          sess.Seed,
			"preset":        settings.Preset,
			"ball_count":    settings.BallCount,
			"control_token": token,
			"expires_at":    time.Now().Add(ttl).UTC(),
			"ws_path":       "/api/v1/sims/" + sess.ID + "/ws",
		})
	}
}

// ListSimulations returns the simulations running on this instance
func ListSimulations(mgr *sim.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"simulations": mgr.List()})
	}
}

// GetSimulation returns the current state, falling back to the cached snapshot
// written by whichever instance runs the simulation.
func GetSimulation(mgr *sim.SessionManager, snapshots SnapshotLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		sess, err := mgr.Get(id)
		if err == nil {
			snap := sess.Snapshot()
			c.Header("X-Ball-Count", strconv.Itoa(len(snap.Balls)))
			c.JSON(http.StatusOK, gin.H{
				"id":     sess.ID,
				"seed":   sess.Seed,
				"state":  snap,
				"source": "live",
			})
			return
		}

		if snapshots != nil {
			snap, cacheErr := snapshots.LoadSnapshot(c.Request.Context(), id)
			if cacheErr == nil {
				c.JSON(http.StatusOK, gin.H{"id": id, "state": snap, "source": "cache"})
				return
			}
			if !errors.Is(cacheErr, simredis.ErrSnapshotNotFound) {
				abortWithError(c, cacheErr)
				return
			}
		}
		abortWithError(c, err)
	}
}

type spawnRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

// SpawnBall adds a ball at the given point
func SpawnBall(mgr *sim.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := mgr.Get(c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		var req spawnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "x and y are required"})
			return
		}
		n := sess.Spawn(c.Request.Context(), *req.X, *req.Y)
		c.JSON(http.StatusCreated, gin.H{"ball_count": n})
	}
}

// DeleteBall removes a random ball; the last ball is never removed
func DeleteBall(mgr *sim.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := mgr.Get(c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		n := sess.Delete(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"ball_count": n})
	}
}

// ResetSimulation replaces every ball with a fresh random set
func ResetSimulation(mgr *sim.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := mgr.Get(c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		n := sess.Reset(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"ball_count": n})
	}
}

// TogglePause flips between RUNNING and PAUSED
func TogglePause(mgr *sim.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := mgr.Get(c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		mode := sess.TogglePause(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"mode": mode})
	}
}

// StopSimulation stops the loop and ends the recorded run
func StopSimulation(mgr *sim.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.Remove(c.Request.Context(), c.Param("id")); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ListSamples returns recorded collision rates of a run, oldest first
func ListSamples(samples SampleLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		if samples == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		list, err := samples.ListSamples(c.Request.Context(), c.Param("id"), limit)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"samples": list})
	}
}
