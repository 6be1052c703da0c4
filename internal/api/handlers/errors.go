package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/ballsim/backend/internal/sim"
	"github.com/gin-gonic/gin"
)

// abortWithError maps domain errors onto HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sim.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sim.ErrInvalidSettings):
		status = http.StatusBadRequest
	case errors.Is(err, sim.ErrTooManySessions):
		status = http.StatusTooManyRequests
	case errors.Is(err, sim.ErrManagerShutdown):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
