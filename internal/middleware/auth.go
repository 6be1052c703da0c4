package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidControlToken = errors.New("invalid control token")

// ControlSimKey is the gin context key holding the sim id a request may control.
const ControlSimKey = "control_sim_id"

// IssueControlToken signs a token that lets its holder mutate one simulation.
func IssueControlToken(secret, simID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sim_id": simID,
		"exp":    time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign control token: %w", err)
	}
	return signed, nil
}

// ParseControlToken returns the sim id the token was issued for.
func ParseControlToken(secret, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidControlToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidControlToken
	}
	simID, ok := claims["sim_id"].(string)
	if !ok || simID == "" {
		return "", ErrInvalidControlToken
	}
	return simID, nil
}

// ControlTokenFromRequest reads a bearer token, falling back to ?ct= for
// clients that cannot set headers on a websocket upgrade.
func ControlTokenFromRequest(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Query("ct")
}

// RequireControlToken rejects requests whose token was not issued for the :id route param.
func RequireControlToken(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ControlTokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "control token required"})
			return
		}
		simID, err := ParseControlToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if simID != c.Param("id") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token does not control this simulation"})
			return
		}
		c.Set(ControlSimKey, simID)
		c.Next()
	}
}
