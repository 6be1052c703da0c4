package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
)

const (
	ballCueFreq     = 880.0
	ballCueDuration = 60 * time.Millisecond
	wallCueFreq     = 110.0
	wallCueDuration = 120 * time.Millisecond
)

// cue is a decaying tone: a short percussive hit of fixed length.
type cue struct {
	sr        beep.SampleRate
	freq      float64
	decay     float64 // per second
	noise     float64 // share of the second partial, gives the wall its thump
	amplitude float64
	pos       int
	length    int
}

func (c *cue) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if c.pos >= c.length {
			return i, i > 0
		}
		t := float64(c.pos) / float64(c.sr)
		env := c.amplitude * math.Exp(-c.decay*t)
		v := (1-c.noise)*math.Sin(2*math.Pi*c.freq*t) + c.noise*math.Sin(2*math.Pi*c.freq*2.7*t)
		samples[i][0] = env * v
		samples[i][1] = env * v
		c.pos++
	}
	return len(samples), true
}

func (c *cue) Err() error { return nil }

// newBallCue is the bright click of two balls meeting. amplitude is in [0, 1].
func newBallCue(sr beep.SampleRate, amplitude float64) beep.Streamer {
	return &cue{
		sr:        sr,
		freq:      ballCueFreq,
		decay:     60,
		amplitude: clamp01(amplitude),
		length:    sr.N(ballCueDuration),
	}
}

// newWallCue is the duller thump of a ball hitting a wall.
func newWallCue(sr beep.SampleRate, amplitude float64) beep.Streamer {
	return &cue{
		sr:        sr,
		freq:      wallCueFreq,
		decay:     30,
		noise:     0.35,
		amplitude: clamp01(amplitude),
		length:    sr.N(wallCueDuration),
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
