package sim

import (
	"context"
	"log"
	"sync"
	"time"
)

// Notice types published on the event bus.
const (
	NoticeStats       = "stats"
	NoticeReset       = "sim_reset"
	NoticeBallSpawned = "ball_spawned"
	NoticeBallDeleted = "ball_deleted"
	NoticeModeChanged = "mode_changed"
	NoticeStopped     = "sim_stopped"
)

// maxPendingEvents caps the collision events carried by one frame message.
const maxPendingEvents = 256

// FrameMessage is the periodic state pushed to viewers.
type FrameMessage struct {
	Type   string           `json:"type" msgpack:"type"`
	SimID  string           `json:"sim_id" msgpack:"sim_id"`
	Tick   uint64           `json:"tick" msgpack:"tick"`
	State  Snapshot         `json:"state" msgpack:"state"`
	Events []CollisionEvent `json:"events" msgpack:"events"`
	// Dropped counts events beyond maxPendingEvents since the previous frame.
	Dropped int `json:"dropped,omitempty" msgpack:"dropped,omitempty"`
}

// Notice is a lifecycle or statistics change of one simulation.
type Notice struct {
	Type      string    `json:"type" msgpack:"type"`
	SimID     string    `json:"sim_id" msgpack:"sim_id"`
	Mode      Mode      `json:"mode,omitempty" msgpack:"mode,omitempty"`
	BallCount int       `json:"ball_count" msgpack:"ball_count"`
	Stats     *Stats    `json:"stats,omitempty" msgpack:"stats,omitempty"`
	At        time.Time `json:"at" msgpack:"at"`
}

// RunInfo describes a simulation when it is created.
type RunInfo struct {
	ID        string
	Seed      int64
	Settings  Settings
	CreatedAt time.Time
}

// Broadcaster pushes frames to connected viewers.
type Broadcaster interface {
	Viewers(simID string) int
	BroadcastFrame(msg *FrameMessage)
}

// Notifier delivers notices to whoever follows the simulation.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Recorder persists run metadata and rolled statistics.
type Recorder interface {
	CreateRun(ctx context.Context, run RunInfo) error
	RecordSample(ctx context.Context, simID string, ballCount int, stats Stats) error
	EndRun(ctx context.Context, simID string) error
}

// SnapshotStore caches the latest state for readers on other instances. The
// entry is dropped when the simulation stops.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, simID string, snap Snapshot) error
	DeleteSnapshot(ctx context.Context, simID string) error
}

// Sinks bundles the optional collaborators of a session. Any field may be nil.
type Sinks struct {
	Broadcaster Broadcaster
	Notifier    Notifier
	Recorder    Recorder
	Snapshots   SnapshotStore
}

// Session drives one Simulation on its own ticker. Every access to the simulation
// goes through mu, so Spawn/Delete/Reset never interleave with a tick.
type Session struct {
	ID        string
	Seed      int64
	CreatedAt time.Time

	sim            *Simulation
	sinks          Sinks
	tickRate       int
	broadcastEvery int

	mu         sync.Mutex
	tick       uint64
	pending    []CollisionEvent
	dropped    int
	lastViewed time.Time

	done chan struct{}
}

// NewSession wraps a fresh simulation. tickRate and broadcastRate are per second.
func NewSession(id string, settings Settings, seed int64, tickRate, broadcastRate int, sinks Sinks) *Session {
	if tickRate <= 0 {
		tickRate = 60
	}
	every := 1
	if broadcastRate > 0 && broadcastRate < tickRate {
		every = tickRate / broadcastRate
	}
	now := time.Now()
	return &Session{
		ID:             id,
		Seed:           seed,
		CreatedAt:      now,
		sim:            New(settings, NewRand(seed)),
		sinks:          sinks,
		tickRate:       tickRate,
		broadcastEvery: every,
		lastViewed:     now,
		done:           make(chan struct{}),
	}
}

// Run ticks the simulation with wall-clock elapsed time until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(time.Second / time.Duration(s.tickRate))
	defer ticker.Stop()

	log.Printf("[SIM] Session %s running at %d Hz", s.ID, s.tickRate)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SIM] Session %s stopping", s.ID)
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			s.Advance(ctx, dt)
		}
	}
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Advance runs one tick of dt seconds and forwards its results to the sinks.
func (s *Session) Advance(ctx context.Context, dt float64) Frame {
	s.mu.Lock()
	frame := s.sim.Step(dt)
	s.tick++
	for _, ev := range frame.Events {
		if len(s.pending) < maxPendingEvents {
			s.pending = append(s.pending, ev)
		} else {
			s.dropped++
		}
	}
	// Frame.Events aliases the simulation buffer.
	frame.Events = append([]CollisionEvent(nil), frame.Events...)

	var msg *FrameMessage
	if s.tick%uint64(s.broadcastEvery) == 0 && s.sinks.Broadcaster != nil && s.sinks.Broadcaster.Viewers(s.ID) > 0 {
		msg = &FrameMessage{
			Type:    "frame",
			SimID:   s.ID,
			Tick:    s.tick,
			State:   s.sim.Query(),
			Events:  s.pending,
			Dropped: s.dropped,
		}
		s.pending = nil
		s.dropped = 0
		s.lastViewed = time.Now()
	} else if s.tick%uint64(s.broadcastEvery) == 0 {
		s.pending = s.pending[:0]
		s.dropped = 0
	}

	var snap Snapshot
	ballCount := s.sim.Len()
	if frame.StatsRolled && s.sinks.Snapshots != nil {
		snap = s.sim.Query()
	}
	s.mu.Unlock()

	if msg != nil {
		s.sinks.Broadcaster.BroadcastFrame(msg)
	}
	if frame.StatsRolled {
		s.statsRolled(ctx, ballCount, frame.Stats, snap)
	}
	return frame
}

func (s *Session) statsRolled(ctx context.Context, ballCount int, stats Stats, snap Snapshot) {
	if s.sinks.Recorder != nil {
		if err := s.sinks.Recorder.RecordSample(ctx, s.ID, ballCount, stats); err != nil {
			log.Printf("[SIM] Failed to record sample for %s: %v", s.ID, err)
		}
	}
	if s.sinks.Snapshots != nil {
		if err := s.sinks.Snapshots.SaveSnapshot(ctx, s.ID, snap); err != nil {
			log.Printf("[SIM] Failed to cache snapshot for %s: %v", s.ID, err)
		}
	}
	s.notify(ctx, Notice{Type: NoticeStats, BallCount: ballCount, Stats: &stats})
}

// Spawn adds a ball at (x, y) between ticks.
func (s *Session) Spawn(ctx context.Context, x, y float64) int {
	s.mu.Lock()
	s.sim.Spawn(x, y)
	n := s.sim.Len()
	s.mu.Unlock()

	s.notify(ctx, Notice{Type: NoticeBallSpawned, BallCount: n})
	return n
}

// Delete removes a random ball between ticks.
func (s *Session) Delete(ctx context.Context) int {
	s.mu.Lock()
	before := s.sim.Len()
	s.sim.Delete()
	n := s.sim.Len()
	s.mu.Unlock()

	if n != before {
		s.notify(ctx, Notice{Type: NoticeBallDeleted, BallCount: n})
	}
	return n
}

// Reset reseeds the ball set between ticks.
func (s *Session) Reset(ctx context.Context) int {
	s.mu.Lock()
	s.sim.Reset()
	s.pending = s.pending[:0]
	n := s.sim.Len()
	s.mu.Unlock()

	s.notify(ctx, Notice{Type: NoticeReset, BallCount: n})
	return n
}

// TogglePause flips the run mode and returns the new one.
func (s *Session) TogglePause(ctx context.Context) Mode {
	s.mu.Lock()
	mode := s.sim.TogglePause()
	n := s.sim.Len()
	s.mu.Unlock()

	s.notify(ctx, Notice{Type: NoticeModeChanged, Mode: mode, BallCount: n})
	return mode
}

// Snapshot returns the current state and marks the session as viewed.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastViewed = time.Now()
	return s.sim.Query()
}

// Settings returns the simulation settings.
func (s *Session) Settings() Settings {
	return s.sim.Settings()
}

// IdleFor reports how long nobody has looked at the session.
func (s *Session) IdleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastViewed)
}

func (s *Session) notify(ctx context.Context, n Notice) {
	if s.sinks.Notifier == nil {
		return
	}
	n.SimID = s.ID
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	if n.Mode == "" {
		s.mu.Lock()
		n.Mode = s.sim.Mode()
		s.mu.Unlock()
	}
	if err := s.sinks.Notifier.Notify(ctx, n); err != nil {
		log.Printf("[SIM] Failed to publish %s for %s: %v", n.Type, s.ID, err)
	}
}
