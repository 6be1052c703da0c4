package audio

import "sync"

// Gate decides whether a collision may make a sound. Cues are suppressed while
// the ball collision rate is at or above maxCueRate, and crowded simulations
// start muted.
type Gate struct {
	mu         sync.Mutex
	muted      bool
	maxCueRate float64
	muteAbove  int
	ballRate   float64
}

// NewGate starts muted when ballCount exceeds muteAbove.
func NewGate(maxCueRate float64, muteAbove, ballCount int) *Gate {
	return &Gate{
		muted:      ballCount > muteAbove,
		maxCueRate: maxCueRate,
		muteAbove:  muteAbove,
	}
}

func (g *Gate) Muted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.muted
}

// ToggleMute flips the mute flag and returns the new value.
func (g *Gate) ToggleMute() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.muted = !g.muted
	return g.muted
}

// Observe records the ball collision rate of the last closed stats window.
func (g *Gate) Observe(ballCollisionsPerSec float64) {
	g.mu.Lock()
	g.ballRate = ballCollisionsPerSec
	g.mu.Unlock()
}

// Allow reports whether a cue may play now.
func (g *Gate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.muted && g.ballRate < g.maxCueRate
}
