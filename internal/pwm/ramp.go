// Package pwm drives a software PWM output and the triangle-wave ramp fed to it.
package pwm

import "math"

// Ramp defaults.
const (
	DefaultRange = 100
	DefaultStep  = 0.5
)

// Ramp walks a duty value up and down between 0 and max.
type Ramp struct {
	value float64
	step  float64
	max   float64
}

// NewRamp starts a ramp at 0 moving up by step.
func NewRamp(step, max float64) *Ramp {
	return &Ramp{step: step, max: max}
}

// Duty returns the current value rounded to the nearest integer.
func (r *Ramp) Duty() int {
	return int(math.Round(r.value))
}

// Value returns the unrounded current value.
func (r *Ramp) Value() float64 { return r.value }

// Step returns the signed step the next Advance will apply.
func (r *Ramp) Step() float64 { return r.step }

// Advance moves one step, reversing first if the step would leave [0, max].
func (r *Ramp) Advance() {
	if r.value+r.step > r.max || r.value+r.step < 0 {
		r.step = -r.step
	}
	r.value += r.step
}
