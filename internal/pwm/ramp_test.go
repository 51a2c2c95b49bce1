package pwm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advance(r *Ramp, n int) {
	for i := 0; i < n; i++ {
		r.Advance()
	}
}

func TestRampReversesAtTop(t *testing.T) {
	r := NewRamp(DefaultStep, DefaultRange)

	advance(r, 200)
	assert.Equal(t, 100.0, r.Value())
	assert.Equal(t, 100, r.Duty())

	r.Advance()
	assert.Less(t, r.Step(), 0.0, "step must be negative after reaching the top")
	assert.Equal(t, 99.5, r.Value())
}

func TestRampReversesAtBottom(t *testing.T) {
	r := NewRamp(DefaultStep, DefaultRange)

	advance(r, 400)
	assert.Equal(t, 0.0, r.Value())
	assert.Equal(t, 0, r.Duty())

	r.Advance()
	assert.Greater(t, r.Step(), 0.0, "step must be positive after returning to zero")
	assert.Equal(t, 0.5, r.Value())
}

func TestRampIsPeriodic(t *testing.T) {
	r := NewRamp(DefaultStep, DefaultRange)
	first := make([]int, 400)
	for i := range first {
		first[i] = r.Duty()
		r.Advance()
	}
	for i := 0; i < 400; i++ {
		require.Equal(t, first[i], r.Duty(), "tick %d of second period", i)
		r.Advance()
	}
}

func TestRampStaysInRange(t *testing.T) {
	r := NewRamp(0.7, 100)
	for i := 0; i < 5000; i++ {
		r.Advance()
		require.GreaterOrEqual(t, r.Value(), 0.0)
		require.LessOrEqual(t, r.Value(), 100.0)
	}
}

func TestRampDutyRounds(t *testing.T) {
	r := NewRamp(DefaultStep, DefaultRange)
	var duties []int
	for i := 0; i < 5; i++ {
		duties = append(duties, r.Duty())
		r.Advance()
	}
	// 0, 0.5, 1, 1.5, 2
	assert.Equal(t, []int{0, 1, 1, 2, 2}, duties)
}
