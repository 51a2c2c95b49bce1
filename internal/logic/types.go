// Package logic contains the listener rules that pair inputs with outputs.
// It performs no hardware access of its own: outputs are reached through the
// Switch interface and time arrives on the edges it is given.
package logic

import (
	"time"

	"github.com/sweeney/pi-experiments/internal/gpio"
)

// EventType names a logical transition reported by a listener.
type EventType string

const (
	EventButtonPressed  EventType = "BUTTON_PRESSED"
	EventButtonReleased EventType = "BUTTON_RELEASED"
	EventMotionDetected EventType = "MOTION_DETECTED"
	EventMotionReset    EventType = "MOTION_RESET"
)

// Event is a transition to be logged and published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Source    gpio.Role
	Offset    int
	Level     gpio.Level
	// Presses is the running press count for button events (0 otherwise).
	Presses int64
}

// Active reports whether the event marks the start of an activation.
func (e Event) Active() bool {
	return e.Type == EventButtonPressed || e.Type == EventMotionDetected
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	ButtonPressed  int
	ButtonReleased int
	MotionDetected int
	MotionReset    int
}

// Switch is the output side of a binding.
type Switch interface {
	Set(level gpio.Level) error
}
