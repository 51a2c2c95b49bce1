package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sweeney/pi-experiments/internal/config"
	"github.com/sweeney/pi-experiments/internal/gpio"
	"github.com/sweeney/pi-experiments/internal/mqtt"
	"github.com/sweeney/pi-experiments/internal/selftest"
	"github.com/sweeney/pi-experiments/internal/status"
	"github.com/sweeney/pi-experiments/internal/web"
)

func statusConfig(experiment string, cfg config.Config) status.Config {
	return status.Config{
		Experiment:    experiment,
		ADCBus:        cfg.ADC.Bus,
		ADCAddress:    cfg.ADC.Address,
		ADCIntervalMs: cfg.ADC.Interval.Milliseconds(),
		PWMTickMs:     cfg.PWM.Tick.Milliseconds(),
		PWMRange:      cfg.PWM.Range,
		PressLimit:    cfg.PressLimit,
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		Broker:        cfg.Broker,
		HTTPAddr:      cfg.HTTPAddr,
	}
}

// publishStatus sends a system event carrying the full status snapshot.
func publishStatus(pub mqtt.Publisher, tracker *status.Tracker, event, reason string) {
	if cs, ok := pub.(mqtt.ConnectionStatus); ok {
		tracker.SetMQTTConnected(cs.IsConnected())
	}
	snap := tracker.Snapshot()
	if event == "HEARTBEAT" {
		log.Printf("heartbeat: uptime=%v presses=%d adc_errors=%d pwm=%d",
			snap.Uptime().Truncate(time.Second), snap.Presses, snap.ADC.Errors, snap.PWMDuty)
	}
	err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Printf("failed to publish %s event: %v", strings.ToLower(event), err)
	}
}

// startHeartbeat schedules periodic status events. The returned func stops
// the schedule and waits for a running heartbeat to finish.
func startHeartbeat(every time.Duration, pub mqtt.Publisher, tracker *status.Tracker) (func(), error) {
	if every <= 0 {
		return func() {}, nil
	}
	c := cron.New()
	_, err := c.AddFunc("@every "+every.String(), func() {
		publishStatus(pub, tracker, "HEARTBEAT", "")
	})
	if err != nil {
		return nil, fmt.Errorf("schedule heartbeat: %w", err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}

// startWeb serves the status page when addr is set. A bind failure is
// logged and the experiment runs without it. The returned func shuts the
// server down.
func startWeb(addr string, tracker *status.Tracker) func() {
	if addr == "" {
		return func() {}
	}
	srv := web.New(addr, tracker)
	if err := srv.Listen(); err != nil {
		log.Printf("http status server disabled: %v", err)
		return func() {}
	}
	log.Printf("http status server listening on %s", srv.Addr())
	return func() {
		if err := srv.Stop(2 * time.Second); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}
}

// releasePins applies shutdown levels and hands every line back.
func releasePins(ctrl gpio.Controller) {
	if err := ctrl.Shutdown(); err != nil {
		log.Printf("gpio shutdown: %v", err)
		return
	}
	log.Printf("shutdown successful")
}

// ledTest runs seq on led. An interrupted test is not an error.
func ledTest(ctx context.Context, led gpio.Output, role gpio.Role, seq selftest.Sequence, sleep selftest.SleepFunc, tracker *status.Tracker) error {
	log.Printf("-- testing led --")
	err := selftest.Run(ctx, led, seq, sleep, func(s selftest.Step, lv gpio.Level) {
		log.Printf("led %s: %s -> %s", role, s.Action, lv)
		tracker.SetLED(role, lv)
	})
	tracker.SetLED(role, led.Level())
	if err != nil {
		if ctx.Err() != nil {
			log.Printf("led test interrupted: %v", err)
			return nil
		}
		return fmt.Errorf("led test: %w", err)
	}
	return nil
}
