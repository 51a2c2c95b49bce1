package pwm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sweeney/pi-experiments/internal/gpio"
)

// DefaultPulseUnit is the width of one duty step. With the default range of
// 100 this gives a 10ms (100Hz) period.
const DefaultPulseUnit = 100 * time.Microsecond

// ErrDutyRange is returned for a duty outside [0, range].
var ErrDutyRange = errors.New("pwm: duty out of range")

// Pin is the output a software PWM toggles.
type Pin interface {
	Set(level gpio.Level) error
}

// Soft generates PWM on an ordinary output by timed toggling.
type Soft struct {
	pin   Pin
	rng   int
	unit  time.Duration
	duty  atomic.Int32
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewSoft creates a software PWM with the given range. Run must be called
// to start generating pulses.
func NewSoft(pin Pin, rng int, unit time.Duration) *Soft {
	if rng <= 0 {
		rng = DefaultRange
	}
	if unit <= 0 {
		unit = DefaultPulseUnit
	}
	return &Soft{pin: pin, rng: rng, unit: unit, sleep: sleepCtx}
}

// Write sets the duty for subsequent periods.
func (s *Soft) Write(duty int) error {
	if duty < 0 || duty > s.rng {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrDutyRange, duty, s.rng)
	}
	s.duty.Store(int32(duty))
	return nil
}

// Duty returns the current duty.
func (s *Soft) Duty() int { return int(s.duty.Load()) }

// Range returns the configured range.
func (s *Soft) Range() int { return s.rng }

// Period returns the length of one PWM cycle.
func (s *Soft) Period() time.Duration { return time.Duration(s.rng) * s.unit }

// Run generates pulses until ctx is done, then drives the pin low.
func (s *Soft) Run(ctx context.Context) error {
	defer s.pin.Set(gpio.Low)
	for {
		d := int(s.duty.Load())
		if d > 0 {
			if err := s.pin.Set(gpio.High); err != nil {
				return fmt.Errorf("pwm high: %w", err)
			}
			if !s.sleep(ctx, time.Duration(d)*s.unit) {
				return nil
			}
		}
		if d < s.rng {
			if err := s.pin.Set(gpio.Low); err != nil {
				return fmt.Errorf("pwm low: %w", err)
			}
			if !s.sleep(ctx, time.Duration(s.rng-d)*s.unit) {
				return nil
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
