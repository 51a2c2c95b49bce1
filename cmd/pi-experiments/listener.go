package main

import (
	"log"

	"github.com/sweeney/pi-experiments/internal/gpio"
	"github.com/sweeney/pi-experiments/internal/logic"
	"github.com/sweeney/pi-experiments/internal/mqtt"
	"github.com/sweeney/pi-experiments/internal/status"
)

// listener fans each input edge out to its binding, the log, the status
// tracker and the publisher. Bindings must be added before any input using
// handle is provisioned.
type listener struct {
	bindings map[gpio.Role]*logic.Binding
	// presses, if set, counts BUTTON_PRESSED events; presses past its
	// limit are dropped.
	presses *logic.PressCounter
	counter logic.Counter
	tracker *status.Tracker
	pub     mqtt.Publisher
}

func newListener(tracker *status.Tracker, pub mqtt.Publisher) *listener {
	return &listener{
		bindings: make(map[gpio.Role]*logic.Binding),
		tracker:  tracker,
		pub:      pub,
	}
}

func (l *listener) bind(role gpio.Role, b *logic.Binding) {
	l.bindings[role] = b
}

func (l *listener) handle(edge gpio.Edge) {
	b, ok := l.bindings[edge.Role]
	if !ok {
		log.Printf("edge on unbound %s pin %d", edge.Role, edge.Offset)
		return
	}

	ev, err := b.Handle(edge)
	if err != nil {
		log.Printf("listener %s: %v", b.Name, err)
	}
	if l.presses != nil && ev.Type == logic.EventButtonPressed {
		n, counted := l.presses.Press()
		if !counted {
			return
		}
		ev.Presses = n
	}

	l.counter.Add(ev)
	log.Printf("event: %s (pin=%d level=%s)", ev.Type, ev.Offset, ev.Level)
	if ev.Presses > 0 {
		log.Printf("button pressed %d of %d", ev.Presses, l.presses.Limit())
	}
	l.tracker.RecordEvent(ev, l.counter.Snapshot())
	if err := l.pub.Publish(ev); err != nil {
		log.Printf("publish error: %v", err)
	}
}
