// Package logic contains the pure cycle state machine for the filtration rig.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Phase represents one state of the filtration cycle.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhasePreFlush  Phase = "PRE_FLUSH"
	PhaseDisposal  Phase = "DISPOSAL"
	PhaseFiltering Phase = "FILTERING"
	PhasePostFlush Phase = "POST_FLUSH"
	// PhaseStopped is transient: a stopped filtration run passes through it
	// on the way to PhasePostFlush within a single tick.
	PhaseStopped Phase = "STOPPED"
)

// ButtonEvent is a classified button press. Produced at release, consumed
// immediately by the controller.
type ButtonEvent string

const (
	ShortPress ButtonEvent = "SHORT_PRESS"
	LongPress  ButtonEvent = "LONG_PRESS"
)

// Role identifies one actuator output line.
type Role int

const (
	RoleMembraneIn Role = iota
	RoleDrain
	RoleDisposalOut
	RoleProductOut
	RolePump

	NumRoles = 5
)

func (r Role) String() string {
	switch r {
	case RoleMembraneIn:
		return "membrane-in"
	case RoleDrain:
		return "drain"
	case RoleDisposalOut:
		return "disposal-out"
	case RoleProductOut:
		return "product-out"
	case RolePump:
		return "pump"
	}
	return "unknown"
}

// FlowConfig names one combination of valve routes and pump state.
type FlowConfig int

const (
	FlowAllOff   FlowConfig = iota
	FlowFlush               // membrane-in + drain open, pump running (pre/post flush)
	FlowDisposal            // membrane-in + disposal-out open, pump running
	FlowFilter              // membrane-in + product-out open, pump running
	FlowVent                // inlet closed, drain open, pump off (pressure relief)
)

func (f FlowConfig) String() string {
	switch f {
	case FlowAllOff:
		return "all-off"
	case FlowFlush:
		return "flush"
	case FlowDisposal:
		return "disposal"
	case FlowFilter:
		return "filter"
	case FlowVent:
		return "vent"
	}
	return "unknown"
}

// Command is a single actuator line change to apply to hardware.
type Command struct {
	Role Role
	On   bool
}

// Cue is a named audible feedback pattern.
type Cue string

const (
	CueGreeting  Cue = "GREETING"   // startup
	CuePress     Cue = "PRESS"      // short press acknowledged
	CueLongPress Cue = "LONG_PRESS" // long press acknowledged
	CueSkip      Cue = "SKIP"       // pre-flush skipped, filtering now
	CueStop      Cue = "STOP"       // filtration stopped early
	CueConfirm   Cue = "CONFIRM"    // filtration duration saved
	CueFinish    Cue = "FINISH"     // filtration run completed
	CueWarn      Cue = "WARN"       // config save failed
)

// Trigger records what caused a phase transition.
type Trigger string

const (
	TriggerButton Trigger = "BUTTON"
	TriggerTimer  Trigger = "TIMER"
	TriggerAuto   Trigger = "AUTO"
	TriggerFault  Trigger = "FAULT"
)

// Event records one phase transition.
type Event struct {
	Timestamp time.Time
	From      Phase
	To        Phase
	Trigger   Trigger
	Long      bool // fixed one-hour filtration run
	Auto      bool // part of an idle auto-flush cycle
}

// Params carries the rig timing parameters in duration form.
type Params struct {
	PreFlush        time.Duration
	PostFlush       time.Duration
	Disposal        time.Duration
	Filter          time.Duration
	AutoFlush       time.Duration
	WaterClean      time.Duration
	PumpSwitchDelay time.Duration
}

// LongFilterDuration is the fixed run length of a long-press filtration.
const LongFilterDuration = time.Hour

// VentDuration is how long the drain stays open to relieve residual
// pressure when shutting down to all-off.
const VentDuration = 2 * time.Second

// CycleCounts tracks completed activity since startup.
type CycleCounts struct {
	AutoFlushes int // completed idle auto-flush cycles
	FilterRuns  int // filtration runs ended (timer or button)
	Saved       int // filtration durations persisted via long press
}

// TickResult is everything one controller tick asks the outside world to do.
type TickResult struct {
	Commands []Command
	Cues     []Cue
	Events   []Event
	// SaveFilterSec, when > 0, is a new filtration duration in whole
	// seconds to persist. Persistence failure is non-fatal; the value is
	// already retained in memory.
	SaveFilterSec int
}
