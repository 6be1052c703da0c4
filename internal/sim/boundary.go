package sim

// ReflectWalls keeps b inside the arena. Each violated wall negates the perpendicular
// velocity component, clamps the position onto the wall line and emits one event.
// Top/bottom and left/right are either/or; one of each may fire in the same call.
func ReflectWalls(b *Ball, arena Arena, maxMass float64, emit func(CollisionEvent)) int {
	minX := arena.WallThickness + b.Radius
	maxX := arena.Width - arena.WallThickness - b.Radius
	minY := arena.WallThickness + b.Radius
	maxY := arena.Height - arena.WallThickness - b.Radius

	hits := 0
	if b.Position.Y < minY {
		b.Velocity.Y = -b.Velocity.Y
		b.Position.Y = minY
		hits++
	} else if b.Position.Y > maxY {
		b.Velocity.Y = -b.Velocity.Y
		b.Position.Y = maxY
		hits++
	}

	if b.Position.X < minX {
		b.Velocity.X = -b.Velocity.X
		b.Position.X = minX
		hits++
	} else if b.Position.X > maxX {
		b.Velocity.X = -b.Velocity.X
		b.Position.X = maxX
		hits++
	}

	if emit != nil {
		ev := CollisionEvent{Kind: KindWall, Intensity: clampUnit(b.Mass / maxMass)}
		for i := 0; i < hits; i++ {
			emit(ev)
		}
	}
	return hits
}
