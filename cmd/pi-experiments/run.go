package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/pi-experiments/internal/adc"
	"github.com/sweeney/pi-experiments/internal/config"
	"github.com/sweeney/pi-experiments/internal/gpio"
	"github.com/sweeney/pi-experiments/internal/logic"
	"github.com/sweeney/pi-experiments/internal/mqtt"
	"github.com/sweeney/pi-experiments/internal/pwm"
	"github.com/sweeney/pi-experiments/internal/selftest"
	"github.com/sweeney/pi-experiments/internal/status"
)

// runExperiment runs diagnostics, provisions the board, installs the
// listeners, tests the green LED, starts the ADC and PWM pollers and then
// waits at the quit gate. Pollers are joined before the pins are released.
func runExperiment(ctx context.Context, cfg config.Config, e env) error {
	log.Printf("starting experiments")

	if cfg.Diagnostics {
		if err := showDiagnostics(e.platform); err != nil {
			return err
		}
	}

	layout, err := cfg.Layout()
	if err != nil {
		return err
	}
	for _, d := range layout.Descriptors() {
		log.Printf("%s pin: %d", d.Role, d.Offset)
	}

	tracker := status.NewTracker(time.Now(), statusConfig("run", cfg))
	pub := e.newPublisher(cfg, tracker)
	defer pub.Close()

	ctrl, err := e.newController(cfg.Chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer releasePins(ctrl)

	outputs := make(map[gpio.Role]gpio.Output)
	for _, d := range []gpio.PinDescriptor{layout.RedLED, layout.YellowLED, layout.GreenLED} {
		out, err := ctrl.ProvisionOutput(d)
		if err != nil {
			return fmt.Errorf("provision: %w", err)
		}
		outputs[d.Role] = out
		tracker.SetLED(d.Role, out.Level())
	}
	red, yellow, green := outputs[gpio.RoleRedLED], outputs[gpio.RoleYellowLED], outputs[gpio.RoleGreenLED]

	l := newListener(tracker, pub)
	l.bind(gpio.RoleButton, logic.ButtonBinding(green))
	l.bind(gpio.RoleMotion, logic.MotionBinding(red))
	for _, d := range []gpio.PinDescriptor{layout.Button, layout.Motion} {
		if _, err := ctrl.ProvisionInput(d, l.handle); err != nil {
			return fmt.Errorf("provision: %w", err)
		}
		log.Printf("listening on %s pin %d (%s)", d.Role, d.Offset, d.Pull)
	}

	publishStatus(pub, tracker, "STARTUP", "")
	defer startWeb(cfg.HTTPAddr, tracker)()
	stopHeartbeat, err := startHeartbeat(cfg.Heartbeat, pub, tracker)
	if err != nil {
		return err
	}
	defer stopHeartbeat()

	if err := ledTest(ctx, green, gpio.RoleGreenLED, selftest.Basic, e.sleep, tracker); err != nil {
		return err
	}

	pollCtx, stopPollers := context.WithCancel(ctx)
	defer stopPollers()
	var g errgroup.Group

	if cfg.ADC.Enabled {
		if dev := startADC(pollCtx, &g, cfg.ADC, e, tracker, pub); dev != nil {
			defer dev.Close()
		}
	}
	if cfg.PWM.Enabled {
		startPWM(pollCtx, &g, cfg.PWM, yellow, tracker)
	}

	gate := e.gate
	gate.hold = cfg.Hold
	reason := gate.wait(ctx)
	if sig := signalName(ctx); sig != "" {
		reason = sig
	}
	log.Printf("stopping experiments (%s)", reason)

	stopPollers()
	if err := g.Wait(); err != nil {
		log.Printf("poller error: %v", err)
	}

	publishStatus(pub, tracker, "SHUTDOWN", reason)
	return nil
}

// startADC opens and configures the converter and starts polling it. A
// converter that cannot be opened or configured is reported and skipped.
func startADC(ctx context.Context, g *errgroup.Group, cfg config.ADC, e env, tracker *status.Tracker, pub mqtt.Publisher) adcDevice {
	dev, err := e.openADC(cfg.Bus, cfg.Address)
	if err != nil {
		log.Printf("warning: testing i2c adc device failed (%v)", err)
		return nil
	}
	conv := adc.NewConverter(dev)
	if err := conv.Configure(); err != nil {
		log.Printf("warning: testing i2c adc device failed (%v)", err)
		dev.Close()
		return nil
	}
	log.Printf("adc configured on bus %d address %#02x, settling for %v", cfg.Bus, cfg.Address, cfg.Settle)
	if err := e.sleep(ctx, cfg.Settle); err != nil {
		dev.Close()
		return nil
	}

	p := adc.NewPoller(conv, cfg.Breaker)
	p.OnReading = func(r adc.Reading) {
		log.Printf("adc: %d", r.Value)
		tracker.SetADCReading(r.Value, r.Timestamp)
		if err := pub.PublishReading(r); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
	p.OnError = func(err error) {
		log.Printf("adc read error: %v", err)
		tracker.RecordADCError(err)
	}
	p.OnStateChange = func(from, to string) {
		log.Printf("adc: breaker %s -> %s", from, to)
		tracker.SetADCBreaker(to)
	}
	tracker.SetADCEnabled(true)
	tracker.SetADCBreaker(p.State())

	g.Go(func() error {
		t := time.NewTicker(cfg.Interval)
		defer t.Stop()
		return p.Run(ctx, t.C)
	})
	return dev
}

// startPWM fades the yellow LED with a software PWM ramp.
func startPWM(ctx context.Context, g *errgroup.Group, cfg config.PWM, led gpio.Output, tracker *status.Tracker) {
	soft := pwm.NewSoft(led, cfg.Range, pwm.DefaultPulseUnit)
	ramper := pwm.NewRamper(soft, pwm.NewRamp(cfg.Step, float64(cfg.Range)))
	ramper.OnDuty = func(duty int) { tracker.SetPWM(true, duty) }
	ramper.OnError = func(err error) { log.Printf("pwm: %v", err) }
	tracker.SetPWM(true, 0)
	log.Printf("pwm: range %d, period %v, step %v every %v", soft.Range(), soft.Period(), cfg.Step, cfg.Tick)

	g.Go(func() error { return soft.Run(ctx) })
	g.Go(func() error {
		t := time.NewTicker(cfg.Tick)
		defer t.Stop()
		return ramper.Run(ctx, t.C)
	})
}
