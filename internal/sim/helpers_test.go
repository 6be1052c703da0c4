package sim

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func assertVec(t *testing.T, name string, got, want Vec2) {
	t.Helper()
	if !approx(got.X, want.X, tolerance) || !approx(got.Y, want.Y, tolerance) {
		t.Errorf("%s = (%.9f, %.9f), want (%.9f, %.9f)", name, got.X, got.Y, want.X, want.Y)
	}
}

// openArena returns settings with an arena large enough that walls never interfere.
func openArena() Settings {
	s := DefaultSettings()
	s.Arena = Arena{Width: 10000, Height: 10000, WallThickness: 0}
	return s
}

func ball(x, y, vx, vy, radius float64) Ball {
	return NewBall(NewVec2(x, y), NewVec2(vx, vy), radius, Color{R: 200, G: 150, B: 150})
}
