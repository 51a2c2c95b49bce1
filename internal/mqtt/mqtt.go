// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/pi-experiments/internal/adc"
	"github.com/sweeney/pi-experiments/internal/logic"
)

// Topic is the MQTT topic for listener events.
const Topic = "pi/experiments/events"

// TopicADC is the MQTT topic for converter samples.
const TopicADC = "pi/experiments/adc"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "pi/experiments/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a listener event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishReading sends an ADC sample to the broker.
	PublishReading(r adc.Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "quit" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload is the message body for listener events.
type Payload struct {
	Event EventPayload `json:"event"`
}

// EventPayload contains the listener event details.
type EventPayload struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Source    string `json:"source"`
	Pin       int    `json:"pin"`
	Level     string `json:"level"`
	Presses   int64  `json:"presses,omitempty"`
}

// FormatPayload creates the JSON payload for a listener event.
func FormatPayload(event logic.Event) ([]byte, error) {
	return json.Marshal(Payload{
		Event: EventPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Type:      string(event.Type),
			Source:    string(event.Source),
			Pin:       event.Offset,
			Level:     event.Level.String(),
			Presses:   event.Presses,
		},
	})
}

// ReadingPayload is the message body for converter samples.
type ReadingPayload struct {
	ADC ADCPayload `json:"adc"`
}

// ADCPayload contains one sample.
type ADCPayload struct {
	Timestamp string `json:"timestamp"`
	Value     int    `json:"value"`
	Raw       string `json:"raw"`
}

// FormatReadingPayload creates the JSON payload for an ADC sample.
func FormatReadingPayload(r adc.Reading) ([]byte, error) {
	return json.Marshal(ReadingPayload{
		ADC: ADCPayload{
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
			Value:     r.Value,
			Raw:       fmt.Sprintf("%02x%02x", r.Raw[0], r.Raw[1]),
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (OFFLINE, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the last-will message the broker publishes when the
// connection drops without a clean disconnect.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "connection lost"})
	return data
}
