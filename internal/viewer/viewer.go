package viewer

import (
	"context"
	"time"

	"github.com/ballsim/backend/internal/sim"
	"github.com/gdamore/tcell/v2"
)

const (
	// repeatInterval paces shift-held spawning and deleting.
	repeatInterval = 100 * time.Millisecond
	frameInterval  = 16 * time.Millisecond
	// maxFrameDt keeps a stalled terminal from turning into one huge step.
	maxFrameDt = 0.1
)

// MuteGate is the audio switch shown in the HUD. *audio.Gate satisfies it.
type MuteGate interface {
	Muted() bool
	ToggleMute() bool
	Observe(ballCollisionsPerSec float64)
}

// Viewer owns a simulation and drives it from terminal input. Everything runs
// on the goroutine that calls Run.
type Viewer struct {
	screen tcell.Screen
	sim    *sim.Simulation
	gate   MuteGate

	mouseX, mouseY int
	mouseHeld      bool
	shiftHeld      bool
	lastRepeat     time.Time
}

// New creates a viewer. gate may be nil when audio is disabled.
func New(screen tcell.Screen, s *sim.Simulation, gate MuteGate) *Viewer {
	return &Viewer{screen: screen, sim: s, gate: gate}
}

// Run polls input and ticks the simulation until the user quits or ctx is done.
func (v *Viewer) Run(ctx context.Context) {
	v.screen.EnableMouse(tcell.MouseButtonEvents | tcell.MouseDragEvents)
	defer v.screen.DisableMouse()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	last := time.Now()
	v.Draw()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok || !v.HandleEvent(ev, time.Now()) {
				return
			}
		case now := <-ticker.C:
			v.Update(now.Sub(last).Seconds(), now)
			last = now
			v.Draw()
		}
	}
}

// HandleEvent applies one input event and reports whether to keep running.
func (v *Viewer) HandleEvent(ev tcell.Event, now time.Time) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch ev.Rune() {
		case 'q':
			return false
		case 'r':
			v.sim.Reset()
		case 'm':
			if v.gate != nil {
				v.gate.ToggleMute()
			}
		case 'p', ' ':
			v.sim.TogglePause()
		case 'd':
			v.sim.Delete()
		case 'D':
			// Shift-d autorepeats; delete at most once per interval.
			if v.repeatAllowed(now) {
				v.sim.Delete()
			}
		}

	case *tcell.EventMouse:
		x, y := ev.Position()
		v.mouseX, v.mouseY = x, y
		v.shiftHeld = ev.Modifiers()&tcell.ModShift != 0
		if ev.Buttons()&tcell.Button1 == 0 {
			v.mouseHeld = false
			return true
		}
		if !v.mouseHeld {
			v.mouseHeld = true
			v.lastRepeat = now
			v.spawnAtMouse()
		}

	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

// Update advances the simulation by dt seconds of wall-clock time.
func (v *Viewer) Update(dt float64, now time.Time) {
	if v.mouseHeld && v.shiftHeld && v.repeatAllowed(now) {
		v.spawnAtMouse()
	}
	if dt > maxFrameDt {
		dt = maxFrameDt
	}
	frame := v.sim.Step(dt)
	if frame.StatsRolled && v.gate != nil {
		v.gate.Observe(frame.Stats.BallCollisionsPerSec)
	}
}

func (v *Viewer) repeatAllowed(now time.Time) bool {
	if now.Sub(v.lastRepeat) < repeatInterval {
		return false
	}
	v.lastRepeat = now
	return true
}

func (v *Viewer) spawnAtMouse() {
	w, h := v.screen.Size()
	p := newProjection(v.sim.Settings().Arena, w, h)
	x, y := p.toWorld(v.mouseX, v.mouseY)
	v.sim.Spawn(x, y)
}

// Draw renders the current state.
func (v *Viewer) Draw() {
	muted := v.gate == nil || v.gate.Muted()
	Render(v.screen, v.sim.Query(), muted)
	v.screen.Show()
}
