//go:build linux

package buzzer

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/osmosis-rig/internal/logic"
)

// Real drives a piezo buzzer as a software square wave on a GPIO line.
// Bit-banging is plenty for a feedback beeper; the tone frequency comes
// from the rig config.
type Real struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line

	freq int // Hz

	mu     sync.Mutex // serializes patterns so cues never interleave
	closed bool
}

// NewReal requests the buzzer pin as output.
func NewReal(pin, freq int) (*Real, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request buzzer pin %d: %w", pin, err)
	}

	return &Real{chip: chip, line: line, freq: freq}, nil
}

// Play starts the cue's pattern on its own goroutine and returns
// immediately.
func (r *Real) Play(cue logic.Cue) {
	beeps := pattern(cue)
	if len(beeps) == 0 {
		return
	}
	go r.play(beeps)
}

func (r *Real) play(beeps []beep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	half := time.Second / time.Duration(2*r.freq)
	for _, b := range beeps {
		deadline := time.Now().Add(b.on)
		for time.Now().Before(deadline) {
			r.line.SetValue(1)
			time.Sleep(half)
			r.line.SetValue(0)
			time.Sleep(half)
		}
		if b.off > 0 {
			time.Sleep(b.off)
		}
	}
	r.line.SetValue(0)
}

// Close silences the buzzer and releases GPIO resources. Any pattern
// still playing finishes its current hold on the lock first.
func (r *Real) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	var errs []error
	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("silence buzzer: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close buzzer pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
