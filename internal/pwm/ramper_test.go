package pwm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	duties []int
	fail   map[int]bool
	calls  int
}

func (w *fakeWriter) Write(duty int) error {
	w.calls++
	if w.fail[w.calls] {
		return errors.New("write failed")
	}
	w.duties = append(w.duties, duty)
	return nil
}

func TestRamperStep(t *testing.T) {
	w := &fakeWriter{}
	r := NewRamper(w, NewRamp(DefaultStep, DefaultRange))
	var seen []int
	r.OnDuty = func(d int) { seen = append(seen, d) }

	for i := 0; i < 6; i++ {
		r.Step()
	}
	assert.Equal(t, []int{0, 1, 1, 2, 2, 3}, w.duties)
	assert.Equal(t, w.duties, seen)
}

func TestRamperKeepsGoingOnError(t *testing.T) {
	w := &fakeWriter{fail: map[int]bool{2: true}}
	r := NewRamper(w, NewRamp(1, 10))
	var errs int
	r.OnError = func(error) { errs++ }

	for i := 0; i < 4; i++ {
		r.Step()
	}
	assert.Equal(t, 1, errs)
	assert.Equal(t, []int{0, 2, 3}, w.duties)
}

func TestRamperDrivesSoft(t *testing.T) {
	s := NewSoft(&recordingPin{}, 100, 0)
	r := NewRamper(s, NewRamp(DefaultStep, DefaultRange))
	for i := 0; i < 201; i++ {
		r.Step()
	}
	assert.Equal(t, 100, s.Duty())
}

func TestRamperRunStopsOnCancel(t *testing.T) {
	w := &fakeWriter{}
	r := NewRamper(w, NewRamp(DefaultStep, DefaultRange))
	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, tick) }()

	for i := 0; i < 10; i++ {
		tick <- time.Time{}
	}
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	// immediate step plus one per tick; the step after the last tick may lose
	// the race with cancel
	assert.GreaterOrEqual(t, len(w.duties), 10)
	assert.LessOrEqual(t, len(w.duties), 11)
}
