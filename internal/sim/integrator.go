package sim

// Integrate advances every ball by one explicit Euler step. dt is not clamped; large
// steps can tunnel through thin overlaps.
func Integrate(balls []Ball, dt float64) {
	for i := range balls {
		balls[i].Position = balls[i].Position.Plus(balls[i].Velocity.Times(dt))
	}
}
