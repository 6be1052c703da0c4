package sim

// fallbackNormal separates two balls whose centers coincide.
var fallbackNormal = Vec2{X: 1, Y: 0}

// Overlapping reports whether the circles touch or intersect, and their center distance.
func Overlapping(a, b *Ball) (float64, bool) {
	dist := a.Position.Minus(b.Position).Magnitude()
	return dist, dist <= a.Radius+b.Radius
}

// ResolvePair confirms a candidate pair and, if the balls overlap, applies a perfectly
// elastic exchange along the contact normal and pushes them apart by half the
// overlap each. maxMass normalizes the event intensity.
func ResolvePair(a, b *Ball, maxMass float64) (CollisionEvent, bool) {
	dist, ok := Overlapping(a, b)
	if !ok {
		return CollisionEvent{}, false
	}

	// Zero direction fallback
	un := fallbackNormal
	if dist > 0 {
		un = a.Position.Minus(b.Position).Times(1 / dist)
	}
	ut := un.LeftNormal()

	// Decompose velocities into normal and tangential components
	v1n := a.Velocity.Dot(un)
	v1t := a.Velocity.Dot(ut)
	v2n := b.Velocity.Dot(un)
	v2t := b.Velocity.Dot(ut)

	m1, m2 := a.Mass, b.Mass
	v1nPrime := (v1n*(m1-m2) + 2*m2*v2n) / (m1 + m2)
	v2nPrime := (v2n*(m2-m1) + 2*m1*v1n) / (m1 + m2)

	a.Velocity = un.Times(v1nPrime).Plus(ut.Times(v1t))
	b.Velocity = un.Times(v2nPrime).Plus(ut.Times(v2t))

	overlap := a.Radius + b.Radius - dist
	shift := un.Times(overlap / 2)
	a.Position = a.Position.Plus(shift)
	b.Position = b.Position.Minus(shift)

	return CollisionEvent{
		Kind:      KindBall,
		Intensity: clampUnit((m1 * m2) / (maxMass * maxMass)),
	}, true
}
