package sim

import (
	"math"
	"slices"
)

// Frame is the outcome of one Tick. Events aliases an internal buffer that the next
// Tick overwrites; copy it to keep it.
type Frame struct {
	Events      []CollisionEvent
	StatsRolled bool
	Stats       Stats
}

// BallView is the read-only projection of a ball handed to renderers.
type BallView struct {
	Position Vec2    `json:"position" msgpack:"position"`
	Radius   float64 `json:"radius" msgpack:"radius"`
	Color    Color   `json:"color" msgpack:"color"`
}

// Snapshot is the result of Query.
type Snapshot struct {
	Balls []BallView `json:"balls" msgpack:"balls"`
	Stats Stats      `json:"stats" msgpack:"stats"`
	Mode  Mode       `json:"mode" msgpack:"mode"`
	Arena Arena      `json:"arena" msgpack:"arena"`
}

// Simulation owns one set of balls and its counters. It is not safe for concurrent
// use; callers serialize Spawn, Delete, Reset and Tick.
type Simulation struct {
	settings Settings
	rng      RandSource
	sink     EventSink
	maxMass  float64

	balls  []Ball
	broad  BroadPhase
	events []CollisionEvent
	stats  Stats
	mode   Mode
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithEventSink forwards every collision event to sink as it happens.
func WithEventSink(sink EventSink) Option {
	return func(s *Simulation) {
		s.sink = sink
	}
}

// WithBalls starts the simulation from the given balls instead of a random reset.
func WithBalls(balls ...Ball) Option {
	return func(s *Simulation) {
		s.balls = append(make([]Ball, 0, len(balls)), balls...)
	}
}

// New creates a running simulation seeded with settings.BallCount random balls,
// unless WithBalls supplies the initial set.
func New(settings Settings, rng RandSource, opts ...Option) *Simulation {
	s := &Simulation{
		settings: settings,
		rng:      rng,
		maxMass:  settings.MaxMass(),
		mode:     ModeRunning,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.balls == nil {
		s.Reset()
	}
	return s
}

func (s *Simulation) Settings() Settings { return s.settings }

func (s *Simulation) Mode() Mode { return s.mode }

// TogglePause flips between running and paused and returns the new mode.
func (s *Simulation) TogglePause() Mode {
	s.mode = s.mode.Toggle()
	return s.mode
}

// Len returns the number of balls.
func (s *Simulation) Len() int { return len(s.balls) }

// Balls returns a copy of the current balls in their current order.
func (s *Simulation) Balls() []Ball {
	return slices.Clone(s.balls)
}

// Stats returns the current counters.
func (s *Simulation) Stats() Stats { return s.stats }

// Spawn adds one ball at (x, y) with a random radius, speed and heading.
func (s *Simulation) Spawn(x, y float64) {
	radius, speed := s.drawRadiusAndSpeed()
	s.balls = append(s.balls, s.newBall(NewVec2(x, y), radius, speed))
}

// Delete removes one ball chosen uniformly at random. It keeps at least one ball.
func (s *Simulation) Delete() {
	if len(s.balls) <= 1 {
		return
	}
	i := s.rng.Intn(len(s.balls))
	s.balls = slices.Delete(s.balls, i, i+1)
}

// Reset clears the balls and counters and spawns BallCount balls fully inside the
// walls. The run mode is left as it was.
func (s *Simulation) Reset() {
	s.balls = s.balls[:0]
	s.stats = Stats{}

	a := s.settings.Arena
	for i := 0; i < s.settings.BallCount; i++ {
		radius, speed := s.drawRadiusAndSpeed()
		inset := a.WallThickness + radius
		pos := NewVec2(
			uniform(s.rng, inset, a.Width-inset),
			uniform(s.rng, inset, a.Height-inset),
		)
		s.balls = append(s.balls, s.newBall(pos, radius, speed))
	}
}

// Step runs Tick using the simulation's own mode.
func (s *Simulation) Step(dt float64) Frame {
	return s.Tick(dt, s.mode == ModePaused)
}

// Tick runs one full pass: stats window, broad phase, narrow phase, walls, and
// integration unless paused.
func (s *Simulation) Tick(dt float64, paused bool) Frame {
	s.events = s.events[:0]
	rolled := s.stats.roll(dt, s.settings.StatsWindow)

	for _, p := range s.broad.Sweep(s.balls) {
		if ev, ok := ResolvePair(&s.balls[p.A], &s.balls[p.B], s.maxMass); ok {
			s.emit(ev)
		}
	}

	for i := range s.balls {
		ReflectWalls(&s.balls[i], s.settings.Arena, s.maxMass, s.emit)
	}

	if !paused {
		Integrate(s.balls, dt)
	}

	return Frame{Events: s.events, StatsRolled: rolled, Stats: s.stats}
}

// Query returns a copy of what a renderer needs.
func (s *Simulation) Query() Snapshot {
	views := make([]BallView, len(s.balls))
	for i, b := range s.balls {
		views[i] = BallView{Position: b.Position, Radius: b.Radius, Color: b.Color}
	}
	return Snapshot{
		Balls: views,
		Stats: s.stats,
		Mode:  s.mode,
		Arena: s.settings.Arena,
	}
}

func (s *Simulation) emit(ev CollisionEvent) {
	s.stats.count(ev.Kind)
	s.events = append(s.events, ev)
	if s.sink != nil {
		s.sink.OnCollision(ev)
	}
}

func (s *Simulation) drawRadiusAndSpeed() (radius, speed float64) {
	if s.settings.Preset == PresetBrownian {
		if s.rng.Intn(brownianHeavyOdds) == 0 {
			return s.settings.RadiusMax, 0
		}
		return s.settings.RadiusMin, uniform(s.rng, s.settings.SpeedMin, s.settings.SpeedMax)
	}
	return uniform(s.rng, s.settings.RadiusMin, s.settings.RadiusMax),
		uniform(s.rng, s.settings.SpeedMin, s.settings.SpeedMax)
}

func (s *Simulation) newBall(pos Vec2, radius, speed float64) Ball {
	angle := s.rng.Float64() * 2 * math.Pi
	return NewBall(pos, FromAngle(angle, speed), radius, randomColor(s.rng))
}
