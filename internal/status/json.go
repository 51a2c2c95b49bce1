package status

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sweeney/pi-experiments/internal/gpio"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string            `json:"event,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	Experiment    string            `json:"experiment"`
	LEDs          map[string]string `json:"leds"`
	Button        string            `json:"button"`
	Motion        string            `json:"motion"`
	Presses       int64             `json:"presses"`
	ADC           ADCJSON           `json:"adc"`
	PWM           PWMJSON           `json:"pwm"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	StartTime     string            `json:"start_time"`
	Timestamp     string            `json:"timestamp"`
	MQTT          MQTTStatus        `json:"mqtt"`
	Counts        CountsJSON        `json:"event_counts"`
	Config        ConfigJSON        `json:"config"`
}

// ADCJSON reports the converter.
type ADCJSON struct {
	Enabled   bool   `json:"enabled"`
	Value     *int   `json:"value,omitempty"`
	ReadAt    string `json:"read_at,omitempty"`
	Errors    int    `json:"errors"`
	LastError string `json:"last_error,omitempty"`
	Breaker   string `json:"breaker,omitempty"`
}

// PWMJSON reports the software PWM.
type PWMJSON struct {
	Enabled bool `json:"enabled"`
	Duty    int  `json:"duty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	ButtonPressed  int `json:"button_pressed"`
	ButtonReleased int `json:"button_released"`
	MotionDetected int `json:"motion_detected"`
	MotionReset    int `json:"motion_reset"`
}

// ConfigJSON is the JSON representation of experiment config.
type ConfigJSON struct {
	ADCBus        int    `json:"adc_bus"`
	ADCAddress    string `json:"adc_address"`
	ADCIntervalMs int64  `json:"adc_interval_ms"`
	PWMTickMs     int64  `json:"pwm_tick_ms"`
	PWMRange      int    `json:"pwm_range"`
	PressLimit    int64  `json:"press_limit"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
}

// LEDRoles lists LEDs in display order.
var LEDRoles = []gpio.Role{gpio.RoleRedLED, gpio.RoleYellowLED, gpio.RoleGreenLED}

func buildInner(snap Snapshot) StatusInner {
	leds := make(map[string]string, len(snap.LEDs))
	for role, lv := range snap.LEDs {
		leds[string(role)] = lv.String()
	}

	inner := StatusInner{
		Experiment:    snap.Config.Experiment,
		LEDs:          leds,
		Button:        onOff(snap.ButtonPressed, "PRESSED", "RELEASED"),
		Motion:        onOff(snap.Motion, "DETECTED", "IDLE"),
		Presses:       snap.Presses,
		PWM:           PWMJSON{Enabled: snap.PWMEnabled, Duty: snap.PWMDuty},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			ButtonPressed:  snap.Counts.ButtonPressed,
			ButtonReleased: snap.Counts.ButtonReleased,
			MotionDetected: snap.Counts.MotionDetected,
			MotionReset:    snap.Counts.MotionReset,
		},
		Config: ConfigJSON{
			ADCBus:        snap.Config.ADCBus,
			ADCAddress:    hexAddr(snap.Config.ADCAddress),
			ADCIntervalMs: snap.Config.ADCIntervalMs,
			PWMTickMs:     snap.Config.PWMTickMs,
			PWMRange:      snap.Config.PWMRange,
			PressLimit:    snap.Config.PressLimit,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}

	inner.ADC = ADCJSON{
		Enabled:   snap.ADC.Enabled,
		Errors:    snap.ADC.Errors,
		LastError: snap.ADC.LastError,
		Breaker:   snap.ADC.Breaker,
	}
	if snap.ADC.Valid {
		v := snap.ADC.Value
		inner.ADC.Value = &v
		inner.ADC.ReadAt = snap.ADC.ReadAt.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// SortedLEDs returns the LED levels in display order, including unknown ones.
func SortedLEDs(snap Snapshot) []LEDView {
	var out []LEDView
	known := map[gpio.Role]bool{}
	for _, r := range LEDRoles {
		known[r] = true
		out = append(out, ledView(snap, r))
	}
	var extra []string
	for r := range snap.LEDs {
		if !known[r] {
			extra = append(extra, string(r))
		}
	}
	sort.Strings(extra)
	for _, r := range extra {
		out = append(out, ledView(snap, gpio.Role(r)))
	}
	return out
}

// LEDView is one LED row for display.
type LEDView struct {
	Role  string
	State string
}

func ledView(snap Snapshot, r gpio.Role) LEDView {
	lv, ok := snap.LEDs[r]
	if !ok {
		return LEDView{Role: string(r), State: "UNKNOWN"}
	}
	return LEDView{Role: string(r), State: lv.String()}
}

func onOff(b bool, on, off string) string {
	if b {
		return on
	}
	return off
}

func hexAddr(a uint16) string {
	return fmt.Sprintf("0x%02x", a)
}
