// Package status provides a thread-safe status tracker for the
// osmosis-rig daemon. It is read by the HTTP handlers and serialized
// into MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/osmosis-rig/internal/logic"
)

// NetworkInfo contains network state as reported by the pi-helper
// environment. Local copy to keep this package free of mqtt imports.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	LongPressMs int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	ConfigPath  string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Phase         logic.Phase
	Long          bool
	Auto          bool
	Remaining     time.Duration // left in the current phase
	AutoFlushAt   time.Time     // next idle auto-flush deadline
	FilterSec     int           // filtration duration currently in effect
	Counts        logic.CycleCounts
	Fatal         bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Phase:     logic.PhaseIdle,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the cycle state. Called from the run loop on every tick.
func (t *Tracker) Update(phase logic.Phase, long, auto bool, remaining time.Duration, autoFlushAt time.Time, filterSec int, counts logic.CycleCounts, fatal bool) {
	t.mu.Lock()
	t.snap.Phase = phase
	t.snap.Long = long
	t.snap.Auto = auto
	t.snap.Remaining = remaining
	t.snap.AutoFlushAt = autoFlushAt
	t.snap.FilterSec = filterSec
	t.snap.Counts = counts
	t.snap.Fatal = fatal
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
