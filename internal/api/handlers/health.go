package handlers

import (
	"net/http"
	"time"

	"github.com/ballsim/backend/internal/sim"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(mgr *sim.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"service":     "ballsim-api",
			"version":     version,
			"uptime":      time.Since(startTime).String(),
			"simulations": mgr.Count(),
		})
	}
}
