package api

import (
	"log"

	"github.com/ballsim/backend/internal/api/handlers"
	"github.com/ballsim/backend/internal/config"
	"github.com/ballsim/backend/internal/middleware"
	"github.com/ballsim/backend/internal/sim"
	"github.com/ballsim/backend/internal/ws"
	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the routes are wired to. Snapshots and Samples
// may be nil when Redis or PostgreSQL is not configured.
type Deps struct {
	Manager   *sim.SessionManager
	Hub       *ws.Hub
	Snapshots handlers.SnapshotLoader
	Samples   handlers.SampleLister
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, deps Deps, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	control := middleware.RequireControlToken(cfg.JWTSecret)

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(deps.Manager))

		sims := v1.Group("/sims")
		{
			sims.POST("", handlers.CreateSimulation(deps.Manager, cfg))
			sims.GET("", handlers.ListSimulations(deps.Manager))
			sims.GET("/:id", handlers.GetSimulation(deps.Manager, deps.Snapshots))
			sims.GET("/:id/samples", handlers.ListSamples(deps.Samples))
			sims.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleSimWebSocket(deps.Manager, deps.Hub, cfg))

			sims.POST("/:id/balls", control, handlers.SpawnBall(deps.Manager))
			sims.DELETE("/:id/balls", control, handlers.DeleteBall(deps.Manager))
			sims.POST("/:id/reset", control, handlers.ResetSimulation(deps.Manager))
			sims.POST("/:id/pause", control, handlers.TogglePause(deps.Manager))
			sims.DELETE("/:id", control, handlers.StopSimulation(deps.Manager))
		}
	}
}
