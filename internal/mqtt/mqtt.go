// Package mqtt mirrors interlock events onto an MQTT broker so the
// wider machine-monitoring stack can see verdicts and trips without
// tapping the serial link. Publishing is best-effort and never affects
// the control loop.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/card-interlock/internal/logic"
)

// Topic is the MQTT topic for verdict and trip events.
const Topic = "machines/card-feeder/interlock/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "machines/card-feeder/interlock/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an interlock event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is a verdict or trip to mirror onto the broker.
type Event struct {
	Timestamp time.Time
	// Kind is the verdict or trip reason name (PASS, DOUBLE_CARD,
	// WATCHDOG_TIMEOUT, ...).
	Kind string
	// Peak is the peak/offending reading, -1 when the event carries
	// none.
	Peak    int
	Tripped bool
	State   logic.State
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message envelope for interlock events.
type Payload struct {
	Interlock InterlockPayload `json:"interlock"`
}

// InterlockPayload contains the event details.
type InterlockPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Peak      *int   `json:"peak,omitempty"`
	Tripped   bool   `json:"tripped"`
	State     string `json:"state"`
}

// FormatPayload creates the JSON payload for an interlock event.
func FormatPayload(event Event) ([]byte, error) {
	inner := InterlockPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     event.Kind,
		Tripped:   event.Tripped,
		State:     string(event.State),
	}
	if event.Peak >= 0 {
		peak := event.Peak
		inner.Peak = &peak
	}
	return json.Marshal(Payload{Interlock: inner})
}

// SystemPayload is the MQTT message envelope for system events without
// a full status snapshot.
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
