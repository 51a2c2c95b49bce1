package logic

import (
	"fmt"
	"sync"

	"github.com/sweeney/pi-experiments/internal/gpio"
)

// Binding pairs a watched input with the output it drives.
type Binding struct {
	Name          string
	ActiveLevel   gpio.Level
	ActiveEvent   EventType
	InactiveEvent EventType
	Output        Switch
}

// ButtonBinding drives out high while the pulled-up button is held low.
func ButtonBinding(out Switch) *Binding {
	return &Binding{
		Name:          "button",
		ActiveLevel:   gpio.Low,
		ActiveEvent:   EventButtonPressed,
		InactiveEvent: EventButtonReleased,
		Output:        out,
	}
}

// MotionBinding drives out high while the motion sensor reports high.
func MotionBinding(out Switch) *Binding {
	return &Binding{
		Name:          "motion",
		ActiveLevel:   gpio.High,
		ActiveEvent:   EventMotionDetected,
		InactiveEvent: EventMotionReset,
		Output:        out,
	}
}

// Handle applies one edge: the output follows the activation state.
// The event is returned even when driving the output fails.
func (b *Binding) Handle(e gpio.Edge) (Event, error) {
	ev := Event{
		Timestamp: e.Time,
		Source:    e.Role,
		Offset:    e.Offset,
		Level:     e.Level,
		Type:      b.InactiveEvent,
	}
	target := gpio.Low
	if e.Level == b.ActiveLevel {
		ev.Type = b.ActiveEvent
		target = gpio.High
	}
	if b.Output == nil {
		return ev, nil
	}
	if err := b.Output.Set(target); err != nil {
		return ev, fmt.Errorf("%s output: %w", b.Name, err)
	}
	return ev, nil
}

// Counter tallies events by type. Safe for concurrent use.
type Counter struct {
	mu     sync.Mutex
	counts EventCounts
}

// Add counts one event.
func (c *Counter) Add(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Type {
	case EventButtonPressed:
		c.counts.ButtonPressed++
	case EventButtonReleased:
		c.counts.ButtonReleased++
	case EventMotionDetected:
		c.counts.MotionDetected++
	case EventMotionReset:
		c.counts.MotionReset++
	}
}

// Snapshot returns the current counts.
func (c *Counter) Snapshot() EventCounts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}
