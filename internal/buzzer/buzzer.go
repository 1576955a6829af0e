// Package buzzer emits audible cues on a GPIO line. Cues are
// fire-and-forget: Play returns immediately and the pattern runs on its
// own goroutine, so the control loop never waits on a beep.
package buzzer

import (
	"time"

	"github.com/sweeney/osmosis-rig/internal/logic"
)

// Sounder plays named cues.
type Sounder interface {
	Play(cue logic.Cue)
	Close() error
}

// Discard is a Sounder that does nothing. The daemon falls back to it
// when the buzzer line cannot be requested; losing beeps must never
// stop the rig.
type Discard struct{}

// Play does nothing.
func (Discard) Play(logic.Cue) {}

// Close does nothing.
func (Discard) Close() error { return nil }

// beep is one tone burst followed by a pause.
type beep struct {
	on  time.Duration
	off time.Duration
}

// pattern returns the beep sequence for a cue. Every user-visible
// outcome has a distinguishable pattern: a failed save is three rapid
// short beeps, a saved duration a long-short pair, a finished run three
// long beeps.
func pattern(cue logic.Cue) []beep {
	switch cue {
	case logic.CueGreeting:
		return []beep{{on: 100 * time.Millisecond, off: 100 * time.Millisecond}, {on: 500 * time.Millisecond}}
	case logic.CuePress:
		return []beep{{on: 200 * time.Millisecond}}
	case logic.CueLongPress:
		return []beep{{on: 500 * time.Millisecond}}
	case logic.CueSkip:
		return []beep{{on: 100 * time.Millisecond, off: 100 * time.Millisecond}, {on: 200 * time.Millisecond}}
	case logic.CueStop:
		return []beep{{on: 300 * time.Millisecond}}
	case logic.CueConfirm:
		return []beep{{on: 500 * time.Millisecond, off: 200 * time.Millisecond}, {on: 100 * time.Millisecond}}
	case logic.CueFinish:
		return []beep{
			{on: 400 * time.Millisecond, off: 200 * time.Millisecond},
			{on: 400 * time.Millisecond, off: 200 * time.Millisecond},
			{on: 400 * time.Millisecond},
		}
	case logic.CueWarn:
		return []beep{
			{on: 100 * time.Millisecond, off: 100 * time.Millisecond},
			{on: 100 * time.Millisecond, off: 100 * time.Millisecond},
			{on: 100 * time.Millisecond},
		}
	}
	return nil
}
