package sim

// Mode is the externally visible run state of a simulation.
type Mode string

const (
	ModeRunning Mode = "RUNNING"
	ModePaused  Mode = "PAUSED"
)

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModePaused {
		return ModeRunning
	}
	return ModePaused
}
