package buzzer

import "github.com/sweeney/osmosis-rig/internal/logic"

// Fake records played cues for test assertions.
type Fake struct {
	// Cues contains every cue passed to Play, in order.
	Cues []logic.Cue

	// Closed tracks if Close was called.
	Closed bool
}

// NewFake creates a Fake sounder.
func NewFake() *Fake {
	return &Fake{}
}

// Play records the cue.
func (f *Fake) Play(cue logic.Cue) {
	f.Cues = append(f.Cues, cue)
}

// Close marks the sounder as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded cues.
func (f *Fake) Reset() {
	f.Cues = nil
	f.Closed = false
}
