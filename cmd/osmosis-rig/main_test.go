package main

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/osmosis-rig/internal/buzzer"
	"github.com/sweeney/osmosis-rig/internal/config"
	"github.com/sweeney/osmosis-rig/internal/gpio"
	"github.com/sweeney/osmosis-rig/internal/logic"
	"github.com/sweeney/osmosis-rig/internal/mqtt"
	"github.com/sweeney/osmosis-rig/internal/status"
)

// fakeClock returns a strictly advancing time, one step per call.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeClock(start time.Time, step time.Duration) *fakeClock {
	return &fakeClock{t: start, step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

type loopFixture struct {
	button    *gpio.FakeButton
	outputs   *gpio.FakeOutputs
	sounder   *buzzer.Fake
	publisher *mqtt.FakePublisher
	store     *config.Store
	cfg       config.Config
	ctl       *logic.Controller
	tracker   *status.Tracker
	clock     *fakeClock
	tick      chan time.Time
	sig       chan os.Signal
}

func newLoopFixture(t *testing.T, samples []bool, params logic.Params) *loopFixture {
	t.Helper()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &loopFixture{
		button:    gpio.NewFakeButton(samples),
		outputs:   gpio.NewFakeOutputs(),
		sounder:   buzzer.NewFake(),
		publisher: mqtt.NewFakePublisher(),
		store:     config.NewStore(filepath.Join(t.TempDir(), "config.json")),
		cfg:       config.Default(),
		ctl:       logic.NewController(params, logic.NewButtonMonitor(0, time.Second), base),
		tracker:   status.NewTracker(base, status.Config{Broker: "tcp://test:1883"}),
		clock:     newFakeClock(base, 100*time.Millisecond),
		tick:      make(chan time.Time),
		sig:       make(chan os.Signal, 1),
	}
}

// run feeds n ticks, then a signal, while runLoop executes on the test
// goroutine. Returns runLoop's error.
func (f *loopFixture) run(t *testing.T, n int, heartbeat time.Duration) error {
	t.Helper()
	go func() {
		for i := 0; i < n; i++ {
			f.tick <- time.Time{}
		}
		f.sig <- syscall.SIGTERM
	}()
	return runLoop(f.button, f.outputs, f.sounder, f.publisher, f.publisher,
		f.store, f.cfg, f.ctl, f.tracker, heartbeat, f.clock.Now, f.tick, f.sig)
}

func testLoopParams() logic.Params {
	return logic.Params{
		PreFlush:        2 * time.Second,
		PostFlush:       2 * time.Second,
		Disposal:        3 * time.Second,
		Filter:          600 * time.Second,
		AutoFlush:       8 * time.Hour,
		WaterClean:      5 * time.Minute,
		PumpSwitchDelay: 0,
	}
}

func TestRunLoopShutdownDrivesEverythingOff(t *testing.T) {
	f := newLoopFixture(t, []bool{false}, testLoopParams())

	if err := f.run(t, 0, 0); err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	// Pump first, then every valve.
	if len(f.outputs.History) < int(logic.NumRoles) {
		t.Fatalf("expected all lines driven off, got %v", f.outputs.History)
	}
	if f.outputs.History[0].Role != logic.RolePump || f.outputs.History[0].On {
		t.Errorf("pump must be stopped first, got %v", f.outputs.History[0])
	}
	for r := logic.Role(0); r < logic.NumRoles; r++ {
		if f.outputs.State[r] {
			t.Errorf("%s left on at shutdown", r)
		}
	}

	if len(f.publisher.SystemEvents) != 1 {
		t.Fatalf("expected one system event, got %v", f.publisher.SystemEvents)
	}
	ev := f.publisher.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" {
		t.Errorf("shutdown event: %+v", ev)
	}
	if !ev.Retained {
		t.Error("shutdown event should be retained")
	}
	if !strings.Contains(string(f.publisher.SystemPayloads[0]), `"event":"SHUTDOWN"`) {
		t.Errorf("shutdown payload: %s", f.publisher.SystemPayloads[0])
	}
}

func TestRunLoopPublishesPhaseEvents(t *testing.T) {
	// Press on ticks 2-3, released after: a short press starting the
	// cycle.
	f := newLoopFixture(t, []bool{false, false, true, true, false}, testLoopParams())

	if err := f.run(t, 8, 0); err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	if len(f.publisher.Events) == 0 {
		t.Fatal("no phase events published")
	}
	first := f.publisher.Events[0]
	if first.From != logic.PhaseIdle || first.To != logic.PhasePreFlush {
		t.Errorf("first event: %s -> %s", first.From, first.To)
	}

	// The flush route was actuated before shutdown closed it again.
	sawPump := false
	for _, cmd := range f.outputs.History {
		if cmd.Role == logic.RolePump && cmd.On {
			sawPump = true
		}
	}
	if !sawPump {
		t.Error("pump never started")
	}

	sawPress := false
	for _, cue := range f.sounder.Cues {
		if cue == logic.CuePress {
			sawPress = true
		}
	}
	if !sawPress {
		t.Errorf("press cue never played: %v", f.sounder.Cues)
	}
}

func TestRunLoopSaveFailurePlaysWarning(t *testing.T) {
	// Zero-length flush phases reach Filtering in a few ticks; a held
	// press (1.4s at 100ms ticks) then stops the run and saves.
	params := testLoopParams()
	params.PreFlush = 0
	params.Disposal = 0

	samples := []bool{false, false, true, true, false, false, false, false}
	for i := 0; i < 14; i++ {
		samples = append(samples, true)
	}
	samples = append(samples, false, false)

	f := newLoopFixture(t, samples, params)
	// Unwritable store path: the save must fail.
	f.store = config.NewStore(filepath.Join(t.TempDir(), "missing-dir", "config.json"))

	if err := f.run(t, 30, 0); err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	stopped := false
	for _, ev := range f.publisher.Events {
		if ev.To == logic.PhaseStopped {
			stopped = true
		}
	}
	if !stopped {
		t.Fatalf("run never stopped; events: %v", f.publisher.Events)
	}

	sawWarn := false
	for _, cue := range f.sounder.Cues {
		if cue == logic.CueWarn {
			sawWarn = true
		}
	}
	if !sawWarn {
		t.Errorf("expected a warning cue after the failed save: %v", f.sounder.Cues)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	f := newLoopFixture(t, []bool{false}, testLoopParams())

	// 100ms ticks against a 50ms interval: every tick heartbeats.
	if err := f.run(t, 3, 50*time.Millisecond); err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	beats := 0
	for _, ev := range f.publisher.SystemEvents {
		if ev.Event == "HEARTBEAT" {
			beats++
		}
	}
	if beats != 3 {
		t.Errorf("expected 3 heartbeats, got %d: %v", beats, f.publisher.SystemEvents)
	}
}

func TestRunLoopButtonErrorSkipsTick(t *testing.T) {
	f := newLoopFixture(t, []bool{true}, testLoopParams())
	f.button.ReadError = os.ErrClosed

	if err := f.run(t, 5, 0); err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if len(f.publisher.Events) != 0 {
		t.Errorf("no phase events expected on read errors, got %v", f.publisher.Events)
	}
}
