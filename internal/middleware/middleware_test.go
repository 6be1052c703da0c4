package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ballsim/backend/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func TestControlTokenRoundTrip(t *testing.T) {
	token, err := IssueControlToken(testSecret, "sim_abc", time.Minute)
	if err != nil {
		t.Fatalf("IssueControlToken: %v", err)
	}
	simID, err := ParseControlToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseControlToken: %v", err)
	}
	if simID != "sim_abc" {
		t.Errorf("sim id = %q", simID)
	}
}

func TestParseControlTokenRejects(t *testing.T) {
	expired, _ := IssueControlToken(testSecret, "sim_abc", -time.Minute)
	otherKey, _ := IssueControlToken("other-secret", "sim_abc", time.Minute)
	noSim, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sim_id": "sim_abc",
		"exp":    time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(testSecret))

	tests := map[string]string{
		"expired":     expired,
		"wrong key":   otherKey,
		"missing sim": noSim,
		"wrong alg":   hs512,
		"garbage":     "not-a-token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseControlToken(testSecret, token); !errors.Is(err, ErrInvalidControlToken) {
				t.Errorf("err = %v, want ErrInvalidControlToken", err)
			}
		})
	}
}

func controlRouter() *gin.Engine {
	r := gin.New()
	r.POST("/sims/:id/reset", RequireControlToken(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ControlSimKey))
	})
	return r
}

func TestRequireControlToken(t *testing.T) {
	good, _ := IssueControlToken(testSecret, "sim_a", time.Minute)

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"bearer", "/sims/sim_a/reset", "Bearer " + good, http.StatusOK},
		{"query", "/sims/sim_a/reset?ct=" + good, "", http.StatusOK},
		{"missing", "/sims/sim_a/reset", "", http.StatusUnauthorized},
		{"invalid", "/sims/sim_a/reset", "Bearer nope", http.StatusUnauthorized},
		{"other sim", "/sims/sim_b/reset", "Bearer " + good, http.StatusForbidden},
	}
	r := controlRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK && w.Body.String() != "sim_a" {
				t.Errorf("context sim id = %q", w.Body.String())
			}
		})
	}
}

func TestWebSocketCORSCheck(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.Config
		origin string
		want   int
	}{
		{"dev localhost", config.Config{Environment: "development"}, "http://localhost:5173", http.StatusOK},
		{"dev remote", config.Config{Environment: "development"}, "https://evil.example", http.StatusForbidden},
		{"prod frontend", config.Config{Environment: "production", FrontendURL: "https://balls.example/"}, "https://balls.example", http.StatusOK},
		{"prod other", config.Config{Environment: "production", FrontendURL: "https://balls.example"}, "http://localhost:5173", http.StatusForbidden},
		{"no origin", config.Config{Environment: "development"}, "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			r := gin.New()
			r.GET("/ws", WebSocketCORSCheck(&cfg), func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Header.Set("Connection", "Upgrade")
			req.Header.Set("Upgrade", "websocket")
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestWebSocketCORSCheckIgnoresPlainRequests(t *testing.T) {
	cfg := config.Config{Environment: "production"}
	r := gin.New()
	r.GET("/ws", WebSocketCORSCheck(&cfg), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestCORSMiddlewareProductionWithoutFrontend(t *testing.T) {
	cfg := config.Config{Environment: "production"}
	r := gin.New()
	r.Use(CORSMiddleware(&cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q, want *", got)
	}
}
