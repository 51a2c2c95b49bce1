// Package status provides a thread-safe view of the running experiment.
// It is read by the HTTP status page and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/pi-experiments/internal/gpio"
	"github.com/sweeney/pi-experiments/internal/logic"
)

// Config contains experiment configuration for display.
type Config struct {
	Experiment    string
	ADCBus        int
	ADCAddress    uint16
	ADCIntervalMs int64
	PWMTickMs     int64
	PWMRange      int
	PressLimit    int64
	HeartbeatMs   int64
	Broker        string
	HTTPAddr      string
}

// ADCState is the latest converter state.
type ADCState struct {
	Enabled   bool
	Value     int
	Valid     bool
	ReadAt    time.Time
	Errors    int
	LastError string
	Breaker   string
}

// Snapshot is a point-in-time view of experiment state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	LEDs          map[gpio.Role]gpio.Level
	ButtonPressed bool
	Motion        bool
	Presses       int64
	Counts        logic.EventCounts
	ADC           ADCState
	PWMDuty       int
	PWMEnabled    bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the experiment started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable experiment state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			LEDs:      make(map[gpio.Role]gpio.Level),
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetLED records the level last written to an LED.
func (t *Tracker) SetLED(role gpio.Role, level gpio.Level) {
	t.mu.Lock()
	t.snap.LEDs[role] = level
	t.mu.Unlock()
}

// RecordEvent applies a listener event.
func (t *Tracker) RecordEvent(e logic.Event, counts logic.EventCounts) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Type {
	case logic.EventButtonPressed:
		t.snap.ButtonPressed = true
		if e.Presses > 0 {
			t.snap.Presses = e.Presses
		}
		t.snap.LEDs[gpio.RoleGreenLED] = gpio.High
	case logic.EventButtonReleased:
		t.snap.ButtonPressed = false
		t.snap.LEDs[gpio.RoleGreenLED] = gpio.Low
	case logic.EventMotionDetected:
		t.snap.Motion = true
		t.snap.LEDs[gpio.RoleRedLED] = gpio.High
	case logic.EventMotionReset:
		t.snap.Motion = false
		t.snap.LEDs[gpio.RoleRedLED] = gpio.Low
	}
	t.snap.Counts = counts
}

// SetADCEnabled marks whether the converter is being polled.
func (t *Tracker) SetADCEnabled(enabled bool) {
	t.mu.Lock()
	t.snap.ADC.Enabled = enabled
	t.mu.Unlock()
}

// SetADCReading records a successful sample.
func (t *Tracker) SetADCReading(value int, at time.Time) {
	t.mu.Lock()
	t.snap.ADC.Value = value
	t.snap.ADC.Valid = true
	t.snap.ADC.ReadAt = at
	t.mu.Unlock()
}

// RecordADCError counts a failed sample.
func (t *Tracker) RecordADCError(err error) {
	t.mu.Lock()
	t.snap.ADC.Errors++
	t.snap.ADC.LastError = err.Error()
	t.mu.Unlock()
}

// SetADCBreaker records the breaker state.
func (t *Tracker) SetADCBreaker(state string) {
	t.mu.Lock()
	t.snap.ADC.Breaker = state
	t.mu.Unlock()
}

// SetPWM records the software PWM state.
func (t *Tracker) SetPWM(enabled bool, duty int) {
	t.mu.Lock()
	t.snap.PWMEnabled = enabled
	t.snap.PWMDuty = duty
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the experiment state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.LEDs = make(map[gpio.Role]gpio.Level, len(t.snap.LEDs))
	for k, v := range t.snap.LEDs {
		s.LEDs[k] = v
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
