// Package selftest drives an LED through a fixed sequence for visual checks.
package selftest

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/pi-experiments/internal/gpio"
)

// Action is what a step does to the LED.
type Action string

const (
	ActionOn     Action = "ON"
	ActionOff    Action = "OFF"
	ActionToggle Action = "TOGGLE"
	ActionPulse  Action = "PULSE"
)

// Step is one action followed by an optional hold. For ActionPulse the
// hold is the pulse width and the LED ends low.
type Step struct {
	Action Action
	Hold   time.Duration
}

// Sequence is an ordered list of steps.
type Sequence []Step

// Basic is the on/off check run by the full experiment.
var Basic = Sequence{
	{Action: ActionOn, Hold: time.Second},
	{Action: ActionOff},
}

// Full is the check run by the button experiment.
var Full = Sequence{
	{Action: ActionOn, Hold: time.Second},
	{Action: ActionOff, Hold: time.Second},
	{Action: ActionToggle},
	{Action: ActionToggle},
	{Action: ActionPulse, Hold: time.Second},
}

// LED is the part of gpio.Output the sequence needs.
type LED interface {
	Set(level gpio.Level) error
	Toggle() error
	Level() gpio.Level
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run executes seq against led. report, if non-nil, is called after each
// action with the resulting level. A cancelled context stops the sequence
// and leaves the LED low.
func Run(ctx context.Context, led LED, seq Sequence, sleep SleepFunc, report func(Step, gpio.Level)) error {
	if sleep == nil {
		sleep = Sleep
	}
	for i, step := range seq {
		if err := apply(ctx, led, step, sleep); err != nil {
			if ctx.Err() != nil {
				led.Set(gpio.Low)
			}
			return fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
		if report != nil {
			report(step, led.Level())
		}
		if step.Action == ActionPulse {
			continue
		}
		if err := sleep(ctx, step.Hold); err != nil {
			led.Set(gpio.Low)
			return fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
	}
	return nil
}

func apply(ctx context.Context, led LED, step Step, sleep SleepFunc) error {
	switch step.Action {
	case ActionOn:
		return led.Set(gpio.High)
	case ActionOff:
		return led.Set(gpio.Low)
	case ActionToggle:
		return led.Toggle()
	case ActionPulse:
		if err := led.Set(gpio.High); err != nil {
			return err
		}
		serr := sleep(ctx, step.Hold)
		if err := led.Set(gpio.Low); err != nil {
			return err
		}
		return serr
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}
