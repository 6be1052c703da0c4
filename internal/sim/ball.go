package sim

import "math"

// Color is the cosmetic RGB tint of a ball. Physics never reads it.
type Color struct {
	R uint8 `json:"r" msgpack:"r"`
	G uint8 `json:"g" msgpack:"g"`
	B uint8 `json:"b" msgpack:"b"`
}

// Ball is a circular rigid body. Mass is derived from Radius once, in NewBall.
type Ball struct {
	Position Vec2    `json:"position"`
	Velocity Vec2    `json:"velocity"`
	Radius   float64 `json:"radius"`
	Mass     float64 `json:"mass"`
	Color    Color   `json:"color"`
}

// NewBall creates a ball with mass = π·radius².
func NewBall(position, velocity Vec2, radius float64, color Color) Ball {
	return Ball{
		Position: position,
		Velocity: velocity,
		Radius:   radius,
		Mass:     MassForRadius(radius),
		Color:    color,
	}
}

// MassForRadius returns the area-proportional mass used for every ball.
func MassForRadius(radius float64) float64 {
	return math.Pi * radius * radius
}

// Momentum returns m·v.
func (b Ball) Momentum() Vec2 {
	return b.Velocity.Times(b.Mass)
}

// KineticEnergy returns ½·m·|v|².
func (b Ball) KineticEnergy() float64 {
	return 0.5 * b.Mass * b.Velocity.MagnitudeSquared()
}

// Left and Right are the ball's extent on the sweep axis.
func (b Ball) Left() float64  { return b.Position.X - b.Radius }
func (b Ball) Right() float64 { return b.Position.X + b.Radius }
