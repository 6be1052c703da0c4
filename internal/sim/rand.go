package sim

import "math/rand"

// RandSource is the randomness a Simulation draws spawn parameters from.
// *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a seeded source for reproducible runs.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// uniform draws from [min, max). A collapsed range returns min.
func uniform(rng RandSource, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rng.Float64()*(max-min)
}

func randomColor(rng RandSource) Color {
	return Color{
		R: uint8(uniform(rng, 100, 255)),
		G: uint8(uniform(rng, 100, 220)),
		B: uint8(uniform(rng, 100, 220)),
	}
}
