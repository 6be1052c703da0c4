package handlers

import (
	"net/http"

	"github.com/ballsim/backend/internal/config"
	"github.com/ballsim/backend/internal/middleware"
	"github.com/ballsim/backend/internal/sim"
	"github.com/ballsim/backend/internal/ws"
	"github.com/gin-gonic/gin"
)

// HandleSimWebSocket streams frames of one simulation. A control token, when
// present, must be valid for this simulation and enables control messages.
func HandleSimWebSocket(mgr *sim.SessionManager, hub *ws.Hub, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		sess, err := mgr.Get(id)
		if err != nil {
			abortWithError(c, err)
			return
		}

		format, err := ws.ParseFormat(c.Query("format"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		canControl := false
		if token := middleware.ControlTokenFromRequest(c); token != "" {
			simID, err := middleware.ParseControlToken(cfg.JWTSecret, token)
			if err != nil || simID != id {
				c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.ErrInvalidControlToken.Error()})
				return
			}
			canControl = true
		}

		ws.Serve(hub, c.Writer, c.Request, ws.ServeOptions{
			SimID:      id,
			Format:     format,
			CanControl: canControl,
			Session:    sess,
		})
	}
}
