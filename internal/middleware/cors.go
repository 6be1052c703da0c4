package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/ballsim/backend/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	log.Printf("[CORS] Environment: %s, FrontendURL: %s", cfg.Environment, cfg.FrontendURL)

	corsConfig := cors.Config{
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{
			"Content-Length", "X-Sim-ID", "X-Ball-Count",
		},
		MaxAge: 12 * time.Hour, // Cache preflight responses
	}

	// Configure allowed origins based on environment
	if cfg.Environment == "development" {
		corsConfig.AllowOrigins = []string{
			"http://localhost:5173", // Vite dev server
			"http://127.0.0.1:5173", // Alternative localhost format
		}
		corsConfig.AllowCredentials = true
		corsConfig.AllowAllOrigins = false
	} else {
		// Production: only the configured frontend
		allowedOrigins := productionOrigins(cfg)
		if len(allowedOrigins) == 0 {
			log.Printf("[CORS] FRONTEND_URL not set; allowing all origins without credentials")
			corsConfig.AllowAllOrigins = true
			return cors.New(corsConfig)
		}
		corsConfig.AllowOrigins = allowedOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowAllOrigins = false
		log.Printf("[CORS] Production allowed origins: %v", allowedOrigins)
	}

	return cors.New(corsConfig)
}

// WebSocketCORSCheck validates WebSocket upgrade origins
func WebSocketCORSCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only check for WebSocket upgrade requests
		if strings.ToLower(c.GetHeader("Connection")) != "upgrade" ||
			strings.ToLower(c.GetHeader("Upgrade")) != "websocket" {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			c.JSON(400, gin.H{"error": "WebSocket origin required"})
			c.Abort()
			return
		}

		var allowed bool
		if cfg.Environment == "development" {
			// Allow localhost variants in dev
			allowed = strings.HasPrefix(origin, "http://localhost:") ||
				strings.HasPrefix(origin, "http://127.0.0.1:")
		} else {
			for _, allowedOrigin := range productionOrigins(cfg) {
				if origin == allowedOrigin {
					allowed = true
					break
				}
			}
		}

		if !allowed {
			c.JSON(403, gin.H{"error": "WebSocket origin not allowed"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func productionOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return nil
	}
	return []string{strings.TrimRight(cfg.FrontendURL, "/")}
}
