package pwm

import (
	"context"
	"time"
)

// DefaultTick is the time between ramp steps.
const DefaultTick = 10 * time.Millisecond

// Writer accepts a duty value.
type Writer interface {
	Write(duty int) error
}

// Ramper feeds a Ramp into a Writer, one step per tick.
type Ramper struct {
	w    Writer
	ramp *Ramp

	// OnDuty receives each duty written.
	OnDuty func(int)
	// OnError receives write failures; the ramp keeps going.
	OnError func(error)
}

// NewRamper creates a Ramper.
func NewRamper(w Writer, ramp *Ramp) *Ramper {
	return &Ramper{w: w, ramp: ramp}
}

// Step writes the current duty and advances the ramp.
func (r *Ramper) Step() {
	duty := r.ramp.Duty()
	if err := r.w.Write(duty); err != nil {
		if r.OnError != nil {
			r.OnError(err)
		}
	} else if r.OnDuty != nil {
		r.OnDuty(duty)
	}
	r.ramp.Advance()
}

// Run steps immediately and then once per tick until ctx is done.
func (r *Ramper) Run(ctx context.Context, tick <-chan time.Time) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		r.Step()
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		}
	}
}
