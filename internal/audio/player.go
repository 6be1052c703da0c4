package audio

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/ballsim/backend/internal/sim"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// maxVoices bounds simultaneous cues so a burst of collisions cannot pile up.
const maxVoices = 32

// Player turns collision events into sound. Without an output device it stays
// silent and only counts.
type Player struct {
	gate   *Gate
	volume float64

	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
	// draining is set once something pulls samples out of mixer.
	draining   bool
	played     uint64
	suppressed uint64
}

// NewPlayer creates a player; volume scales every cue and is clamped to [0, 1].
func NewPlayer(gate *Gate, volume float64) *Player {
	return &Player{
		gate:   gate,
		volume: clamp01(volume),
		mixer:  &beep.Mixer{},
	}
}

// Init opens the speaker. On failure the player keeps working in silent mode.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		log.Printf("[AUDIO] Speaker unavailable, running silent: %v", err)
		return err
	}
	speaker.Play(p.mixer)
	p.initialized = true
	p.draining = true
	log.Printf("[AUDIO] Speaker initialized at %d Hz", sampleRate)
	return nil
}

// OnCollision implements sim.EventSink.
func (p *Player) OnCollision(ev sim.CollisionEvent) {
	if !p.gate.Allow() || ev.Intensity <= 0 {
		p.mu.Lock()
		p.suppressed++
		p.mu.Unlock()
		return
	}

	var s beep.Streamer
	switch ev.Kind {
	case sim.KindBall:
		s = newBallCue(sampleRate, ev.Intensity)
	case sim.KindWall:
		s = newWallCue(sampleRate, ev.Intensity)
	default:
		return
	}
	s = withVolume(s, p.volume)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.draining {
		// Silent: queued cues would never finish, so only count.
		p.played++
		return
	}
	if p.initialized {
		speaker.Lock()
		defer speaker.Unlock()
	}
	if p.mixer.Len() >= maxVoices {
		p.suppressed++
		return
	}
	p.mixer.Add(s)
	p.played++
}

// Stats returns how many cues were played and suppressed.
func (p *Player) Stats() (played, suppressed uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played, p.suppressed
}

// Close stops every cue and releases the speaker.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		p.mixer.Clear()
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	p.initialized = false
	p.draining = false
}

// withVolume scales linearly; effects.Volume works in powers of Base.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol >= 1 {
		return s
	}
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}
