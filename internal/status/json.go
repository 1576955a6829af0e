package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the JSON representation of the daemon status.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	Phase          string       `json:"phase"`
	Long           bool         `json:"long,omitempty"`
	Auto           bool         `json:"auto,omitempty"`
	RemainingSec   int64        `json:"remaining_sec"`
	AutoFlushAt    string       `json:"auto_flush_at"`
	AutoFlushInSec int64        `json:"auto_flush_in_sec"`
	FilterSec      int          `json:"filter_sec"`
	Fault          bool         `json:"fault,omitempty"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Counts         CountsJSON   `json:"cycle_counts"`
	Network        *NetworkJSON `json:"network,omitempty"`
	Config         ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of cycle counts.
type CountsJSON struct {
	AutoFlushes int `json:"auto_flushes"`
	FilterRuns  int `json:"filter_runs"`
	Saved       int `json:"saved_durations"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	LongPressMs int64  `json:"long_press_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	ConfigPath  string `json:"config_path"`
}

func buildInner(snap Snapshot) StatusInner {
	autoFlushIn := snap.AutoFlushAt.Sub(snap.Now)
	if autoFlushIn < 0 {
		autoFlushIn = 0
	}

	return StatusInner{
		Phase:          string(snap.Phase),
		Long:           snap.Long,
		Auto:           snap.Auto,
		RemainingSec:   int64(snap.Remaining.Truncate(time.Second).Seconds()),
		AutoFlushAt:    snap.AutoFlushAt.UTC().Format(time.RFC3339),
		AutoFlushInSec: int64(autoFlushIn.Truncate(time.Second).Seconds()),
		FilterSec:      snap.FilterSec,
		Fault:          snap.Fatal,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			AutoFlushes: snap.Counts.AutoFlushes,
			FilterRuns:  snap.Counts.FilterRuns,
			Saved:       snap.Counts.Saved,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			LongPressMs: snap.Config.LongPressMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			ConfigPath:  snap.Config.ConfigPath,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
