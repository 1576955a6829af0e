// Package mqtt provides MQTT publishing with abstraction for testing.
// Telemetry only: the rig publishes phase changes and lifecycle events,
// it never accepts commands over the network.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/osmosis-rig/internal/logic"
)

// Topic is the MQTT topic for phase-change events.
const Topic = "water/osmosis/rig/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "water/osmosis/rig/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a phase-change event to the broker.
	// Returns error if publishing fails (must not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown,
// heartbeat, fault).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "HEARTBEAT", "FAULT"
	Reason     string // e.g. "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool   // whether the broker should retain the message
}

// Payload represents the phase-change message structure.
type Payload struct {
	Rig RigPayload `json:"rig"`
}

// RigPayload contains the phase-change details.
type RigPayload struct {
	Timestamp string `json:"timestamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	Trigger   string `json:"trigger"`
	Long      bool   `json:"long,omitempty"`
	Auto      bool   `json:"auto,omitempty"`
}

// FormatPayload creates the JSON payload for a phase-change event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Rig: RigPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			From:      string(event.From),
			To:        string(event.To),
			Trigger:   string(event.Trigger),
			Long:      event.Long,
			Auto:      event.Auto,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the message payload for simple system events
// that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full
// status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
