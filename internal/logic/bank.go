package logic

import (
	"errors"
	"time"
)

// ErrTransitionInFlight is returned by Apply when a previous flow change
// has not finished. The controller serializes transitions, so hitting
// this is a fault: the caller must force all-off and halt cycling.
var ErrTransitionInFlight = errors.New("logic: actuator transition already in flight")

// step is one stage of an actuation sequence. wait is measured from the
// previous step.
type step struct {
	wait   time.Duration
	valves *[4]bool
	pump   *bool
}

// Bank owns the commanded state of the four valves and the pump. Flow
// changes are broken into steps so that a pump state change is always
// separated from valve changes by the configured switch delay, while
// valve-only reroutes under a running pump switch immediately. The waits
// are deadlines serviced by Advance, never blocking sleeps.
type Bank struct {
	switchDelay time.Duration
	state       [NumRoles]bool
	target      FlowConfig
	seq         []step
	nextAt      time.Time
}

// NewBank creates a Bank with every line off.
func NewBank(switchDelay time.Duration) *Bank {
	return &Bank{switchDelay: switchDelay}
}

// valveStates maps a flow configuration to the desired valve states,
// indexed RoleMembraneIn..RoleProductOut.
func valveStates(fc FlowConfig) [4]bool {
	switch fc {
	case FlowFlush:
		return [4]bool{true, true, false, false}
	case FlowDisposal:
		return [4]bool{true, false, true, false}
	case FlowFilter:
		return [4]bool{true, false, false, true}
	case FlowVent:
		return [4]bool{false, true, false, false}
	}
	return [4]bool{}
}

func pumpState(fc FlowConfig) bool {
	return fc == FlowFlush || fc == FlowDisposal || fc == FlowFilter
}

// Apply begins a transition to the given flow configuration. The steps
// become due over subsequent Advance calls; the transition is complete
// when Advance reports done.
func (b *Bank) Apply(fc FlowConfig, now time.Time) error {
	if b.Busy() {
		return ErrTransitionInFlight
	}

	b.target = fc
	valves := valveStates(fc)
	pump := pumpState(fc)

	switch {
	case b.state[RolePump] == pump:
		// Pump keeps its state: route valves directly.
		b.seq = []step{{valves: &valves}}

	case pump:
		// Starting the pump: open the target route first so the pump
		// never runs against closed valves.
		on := true
		b.seq = []step{
			{valves: &valves},
			{wait: b.switchDelay, pump: &on},
		}

	default:
		// Stopping the pump: current route stays open while the pump
		// spins down, then the valves move. Shutting down to all-off
		// vents residual pressure through the drain before closing.
		off := false
		if fc == FlowAllOff {
			vent := valveStates(FlowVent)
			closed := valveStates(FlowAllOff)
			b.seq = []step{
				{pump: &off},
				{wait: b.switchDelay, valves: &vent},
				{wait: VentDuration, valves: &closed},
			}
		} else {
			b.seq = []step{
				{pump: &off},
				{wait: b.switchDelay, valves: &valves},
			}
		}
	}

	b.nextAt = now.Add(b.seq[0].wait)
	return nil
}

// Advance executes every step that is due at now and returns the
// resulting line changes. done is true on the call that finishes the
// sequence.
func (b *Bank) Advance(now time.Time) (cmds []Command, done bool) {
	if len(b.seq) == 0 {
		return nil, false
	}

	for len(b.seq) > 0 && !now.Before(b.nextAt) {
		st := b.seq[0]
		b.seq = b.seq[1:]

		if st.valves != nil {
			for i, on := range st.valves {
				r := Role(i)
				if b.state[r] != on {
					b.state[r] = on
					cmds = append(cmds, Command{Role: r, On: on})
				}
			}
		}
		if st.pump != nil && b.state[RolePump] != *st.pump {
			b.state[RolePump] = *st.pump
			cmds = append(cmds, Command{Role: RolePump, On: *st.pump})
		}

		if len(b.seq) > 0 {
			b.nextAt = b.nextAt.Add(b.seq[0].wait)
		}
	}

	return cmds, len(b.seq) == 0
}

// Busy reports whether a transition is still in flight.
func (b *Bank) Busy() bool {
	return len(b.seq) > 0
}

// Target returns the flow configuration most recently applied.
func (b *Bank) Target() FlowConfig {
	return b.target
}

// State returns the commanded state of one line.
func (b *Bank) State(r Role) bool {
	return b.state[r]
}

// ForceAllOff abandons any in-flight sequence and returns the commands
// needed to drive every line off, pump first. Used only on a fault.
func (b *Bank) ForceAllOff() []Command {
	b.seq = nil
	b.target = FlowAllOff

	var cmds []Command
	if b.state[RolePump] {
		b.state[RolePump] = false
		cmds = append(cmds, Command{Role: RolePump, On: false})
	}
	for r := RoleMembraneIn; r <= RoleProductOut; r++ {
		if b.state[r] {
			b.state[r] = false
			cmds = append(cmds, Command{Role: r, On: false})
		}
	}
	return cmds
}
