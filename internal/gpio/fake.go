package gpio

import (
	"errors"

	"github.com/sweeney/osmosis-rig/internal/logic"
)

// FakeButton is a test double that returns scripted button levels.
type FakeButton struct {
	// Samples contains scripted levels (true = pressed). Each call to
	// Pressed consumes the next sample; the last sample repeats once
	// the script is exhausted.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakeButton creates a FakeButton with the given samples.
func NewFakeButton(samples []bool) *FakeButton {
	return &FakeButton{Samples: samples}
}

// Pressed returns the next scripted level.
func (f *FakeButton) Pressed() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	level := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return level, nil
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script.
func (f *FakeButton) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeOutputs records every actuator line change for assertions.
type FakeOutputs struct {
	// State holds the last commanded level per role.
	State map[logic.Role]bool

	// History records every Set call in order.
	History []logic.Command

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set()
	SetError error
}

// NewFakeOutputs creates a FakeOutputs with every line off.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{State: make(map[logic.Role]bool)}
}

// Set records the line change.
func (f *FakeOutputs) Set(role logic.Role, on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.State[role] = on
	f.History = append(f.History, logic.Command{Role: role, On: on})
	return nil
}

// Close marks the outputs as closed.
func (f *FakeOutputs) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakeOutputs) Reset() {
	f.State = make(map[logic.Role]bool)
	f.History = nil
	f.Closed = false
	f.SetError = nil
}
