package sim

import "math"

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Plus(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Minus(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Times(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

func (v Vec2) MagnitudeSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// LeftNormal rotates v by +90 degrees.
func (v Vec2) LeftNormal() Vec2 {
	return Vec2{X: -v.Y, Y: v.X}
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// FromAngle returns a vector of the given length pointing at angle radians.
func FromAngle(angle, length float64) Vec2 {
	return Vec2{X: length * math.Cos(angle), Y: length * math.Sin(angle)}
}
