package logic

import "time"

// Controller is the cycle state machine. It is driven by Tick, one call
// per scheduler pass: the button is sampled on every tick regardless of
// what the actuator bank is doing, and at most one flow transition is
// ever in flight.
type Controller struct {
	params  Params
	monitor *ButtonMonitor
	bank    *Bank

	phase      Phase
	phaseStart time.Time // valid once arming is false
	phaseDur   time.Duration
	arming     bool // actuation for the current phase still in flight
	long       bool // current run is the fixed one-hour filtration
	auto       bool // current cycle is an idle auto-flush

	autoFlushAt time.Time
	lastRunEnd  time.Time
	hasRun      bool

	pending *ButtonEvent // queued press, latest wins
	counts  CycleCounts
	fatal   bool
}

// NewController creates a controller in Idle. The first auto-flush is
// due one full interval after start.
func NewController(params Params, monitor *ButtonMonitor, start time.Time) *Controller {
	return &Controller{
		params:      params,
		monitor:     monitor,
		bank:        NewBank(params.PumpSwitchDelay),
		phase:       PhaseIdle,
		autoFlushAt: start.Add(params.AutoFlush),
	}
}

// Tick runs one scheduler pass: advance any in-flight actuation, poll
// the button, then dispatch the state machine. Button events that
// arrive while an actuation sequence is running are queued and acted
// upon once it completes.
func (c *Controller) Tick(now time.Time, buttonLevel bool) TickResult {
	var res TickResult

	cmds, done := c.bank.Advance(now)
	res.Commands = append(res.Commands, cmds...)
	if done && c.arming {
		// The phase timer starts only once its actuation completed.
		c.arming = false
		c.phaseStart = now
	}

	ev := c.monitor.Poll(now, buttonLevel)

	if c.fatal {
		return res
	}

	if c.bank.Busy() {
		if ev != nil {
			res.Cues = append(res.Cues, ackCue(*ev))
			c.pending = ev
		}
		return res
	}

	if ev != nil {
		res.Cues = append(res.Cues, ackCue(*ev))
		c.pending = nil // a fresh press supersedes anything queued
	} else if c.pending != nil && c.phase != PhaseDisposal && c.phase != PhasePostFlush {
		// Presses queued during actuation are dispatched here. During
		// Disposal the queue is held until the timer expires; PostFlush
		// never reacts to presses.
		ev = c.pending
		c.pending = nil
	}

	switch c.phase {
	case PhaseIdle:
		c.tickIdle(&res, now, ev)
	case PhasePreFlush:
		c.tickPreFlush(&res, now, ev)
	case PhaseDisposal:
		c.tickDisposal(&res, now, ev)
	case PhaseFiltering:
		c.tickFiltering(&res, now, ev)
	case PhasePostFlush:
		if c.expired(now) {
			c.transition(&res, now, PhaseIdle, TriggerTimer)
		}
	}

	return res
}

func (c *Controller) tickIdle(res *TickResult, now time.Time, ev *ButtonEvent) {
	if ev != nil {
		c.long = *ev == LongPress
		c.auto = false
		if c.hasRun && now.Sub(c.lastRunEnd) <= c.params.WaterClean {
			// Membrane flushed recently enough: filter right away.
			c.transition(res, now, PhaseFiltering, TriggerButton)
		} else {
			c.transition(res, now, PhasePreFlush, TriggerButton)
		}
		return
	}

	if !now.Before(c.autoFlushAt) {
		c.auto = true
		c.long = false
		c.transition(res, now, PhasePreFlush, TriggerAuto)
	}
}

func (c *Controller) tickPreFlush(res *TickResult, now time.Time, ev *ButtonEvent) {
	if ev != nil {
		// Filtration requested: the remaining pre-flush is skipped.
		if *ev == LongPress {
			c.long = true
		}
		c.auto = false
		res.Cues = append(res.Cues, CueSkip)
		c.transition(res, now, PhaseFiltering, TriggerButton)
		return
	}

	if c.expired(now) {
		c.transition(res, now, PhaseDisposal, TriggerTimer)
	}
}

func (c *Controller) tickDisposal(res *TickResult, now time.Time, ev *ButtonEvent) {
	if ev != nil {
		// Disposal always runs to completion; the press waits.
		c.pending = ev
	}

	if !c.expired(now) {
		return
	}

	if c.pending != nil {
		// A press during disposal converts the cycle to a filtration
		// run (a long press to the one-hour run).
		if *c.pending == LongPress {
			c.long = true
		}
		c.auto = false
		c.pending = nil
	}

	if c.auto {
		c.transition(res, now, PhasePostFlush, TriggerTimer)
	} else {
		c.transition(res, now, PhaseFiltering, TriggerTimer)
	}
}

func (c *Controller) tickFiltering(res *TickResult, now time.Time, ev *ButtonEvent) {
	if ev != nil {
		if *ev == LongPress {
			// Persist the elapsed run time as the new filtration
			// duration: whole seconds, at least one.
			elapsed := int(now.Sub(c.phaseStart) / time.Second)
			if elapsed < 1 {
				elapsed = 1
			}
			c.params.Filter = time.Duration(elapsed) * time.Second
			res.SaveFilterSec = elapsed
			c.counts.Saved++
			res.Cues = append(res.Cues, CueConfirm)
		} else {
			res.Cues = append(res.Cues, CueStop)
		}
		c.counts.FilterRuns++
		c.transition(res, now, PhaseStopped, TriggerButton)
		c.transition(res, now, PhasePostFlush, TriggerButton)
		return
	}

	if c.expired(now) {
		c.counts.FilterRuns++
		res.Cues = append(res.Cues, CueFinish)
		c.transition(res, now, PhasePostFlush, TriggerTimer)
	}
}

// transition moves to the given phase, records the event, and starts
// the matching actuation sequence. PhaseStopped is transient and has no
// actuation of its own.
func (c *Controller) transition(res *TickResult, now time.Time, to Phase, trig Trigger) {
	res.Events = append(res.Events, Event{
		Timestamp: now,
		From:      c.phase,
		To:        to,
		Trigger:   trig,
		Long:      c.long,
		Auto:      c.auto,
	})
	c.phase = to

	if to == PhaseStopped {
		return
	}

	var fc FlowConfig
	switch to {
	case PhasePreFlush, PhasePostFlush:
		fc = FlowFlush
	case PhaseDisposal:
		fc = FlowDisposal
	case PhaseFiltering:
		fc = FlowFilter
	default:
		fc = FlowAllOff
	}

	if err := c.bank.Apply(fc, now); err != nil {
		c.fail(res, now)
		return
	}
	c.phaseDur = c.durationFor(to)
	c.arming = true

	cmds, done := c.bank.Advance(now)
	res.Commands = append(res.Commands, cmds...)
	if done {
		c.arming = false
		c.phaseStart = now
	}

	switch to {
	case PhasePostFlush:
		c.pending = nil
	case PhaseIdle:
		c.autoFlushAt = now.Add(c.params.AutoFlush)
		c.lastRunEnd = now
		c.hasRun = true
		if c.auto {
			c.counts.AutoFlushes++
		}
		c.auto = false
		c.long = false
		c.pending = nil
	}
}

func (c *Controller) durationFor(p Phase) time.Duration {
	switch p {
	case PhasePreFlush:
		return c.params.PreFlush
	case PhaseDisposal:
		return c.params.Disposal
	case PhaseFiltering:
		if c.long {
			return LongFilterDuration
		}
		return c.params.Filter
	case PhasePostFlush:
		return c.params.PostFlush
	}
	return 0
}

func (c *Controller) expired(now time.Time) bool {
	return !c.arming && now.Sub(c.phaseStart) >= c.phaseDur
}

// fail drives everything off and halts automatic cycling. Only an
// overlapping actuator transition gets here, which the serialized
// scheduler makes unreachable; a restart is required afterwards.
func (c *Controller) fail(res *TickResult, now time.Time) {
	c.fatal = true
	res.Commands = append(res.Commands, c.bank.ForceAllOff()...)
	res.Cues = append(res.Cues, CueWarn)
	res.Events = append(res.Events, Event{
		Timestamp: now,
		From:      c.phase,
		To:        PhaseStopped,
		Trigger:   TriggerFault,
	})
	c.phase = PhaseStopped
}

func ackCue(ev ButtonEvent) Cue {
	if ev == LongPress {
		return CueLongPress
	}
	return CuePress
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// LongRun reports whether the current run is the fixed one-hour one.
func (c *Controller) LongRun() bool {
	return c.long
}

// AutoCycle reports whether the current cycle is an idle auto-flush.
func (c *Controller) AutoCycle() bool {
	return c.auto
}

// Remaining returns the time left in the current phase, zero for Idle
// and Stopped. While the phase's actuation is still in flight the full
// duration is reported.
func (c *Controller) Remaining(now time.Time) time.Duration {
	if c.phase == PhaseIdle || c.phase == PhaseStopped {
		return 0
	}
	if c.arming {
		return c.phaseDur
	}
	left := c.phaseDur - now.Sub(c.phaseStart)
	if left < 0 {
		return 0
	}
	return left
}

// AutoFlushDeadline returns when the next idle auto-flush is due.
func (c *Controller) AutoFlushDeadline() time.Time {
	return c.autoFlushAt
}

// Counts returns the activity counters.
func (c *Controller) Counts() CycleCounts {
	return c.counts
}

// FilterDuration returns the filtration duration currently in effect,
// including an unsaved in-memory update.
func (c *Controller) FilterDuration() time.Duration {
	return c.params.Filter
}

// Fatal reports whether the controller hit an unrecoverable fault.
func (c *Controller) Fatal() bool {
	return c.fatal
}
