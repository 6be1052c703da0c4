package sim

// CollisionKind distinguishes ball-ball contacts from wall reflections.
type CollisionKind string

const (
	KindBall CollisionKind = "ball"
	KindWall CollisionKind = "wall"
)

// CollisionEvent is emitted for every confirmed collision or reflection.
// Intensity is in [0,1] and scales with the masses involved.
type CollisionEvent struct {
	Kind      CollisionKind `json:"kind" msgpack:"kind"`
	Intensity float64       `json:"intensity" msgpack:"intensity"`
}

// EventSink receives collision events synchronously during Tick.
// Implementations must not call back into the Simulation.
type EventSink interface {
	OnCollision(CollisionEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(CollisionEvent)

func (f EventSinkFunc) OnCollision(ev CollisionEvent) { f(ev) }

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
