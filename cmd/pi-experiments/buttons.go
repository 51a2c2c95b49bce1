package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/pi-experiments/internal/config"
	"github.com/sweeney/pi-experiments/internal/gpio"
	"github.com/sweeney/pi-experiments/internal/logic"
	"github.com/sweeney/pi-experiments/internal/selftest"
	"github.com/sweeney/pi-experiments/internal/status"
)

// runButtons runs the full LED self-test, then lights the green LED while
// the button is held and finishes after cfg.PressLimit presses.
func runButtons(ctx context.Context, cfg config.Config, e env) error {
	layout, err := cfg.Layout()
	if err != nil {
		return err
	}

	tracker := status.NewTracker(time.Now(), statusConfig("buttons", cfg))
	pub := e.newPublisher(cfg, tracker)
	defer pub.Close()

	ctrl, err := e.newController(cfg.Chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer releasePins(ctrl)

	green, err := ctrl.ProvisionOutput(layout.GreenLED)
	if err != nil {
		return fmt.Errorf("provision: %w", err)
	}
	tracker.SetLED(gpio.RoleGreenLED, green.Level())

	publishStatus(pub, tracker, "STARTUP", "")
	defer startWeb(cfg.HTTPAddr, tracker)()

	if err := ledTest(ctx, green, gpio.RoleGreenLED, selftest.Full, e.sleep, tracker); err != nil {
		return err
	}

	var (
		mu     sync.Mutex
		button gpio.Input
	)
	unwatch := func() {
		mu.Lock()
		defer mu.Unlock()
		if button != nil {
			button.Unwatch()
		}
	}
	presses := logic.NewPressCounter(cfg.PressLimit, func() {
		log.Printf("press limit reached, removing button listener")
		unwatch()
	})

	l := newListener(tracker, pub)
	l.presses = presses
	l.bind(gpio.RoleButton, logic.ButtonBinding(green))
	in, err := ctrl.ProvisionInput(layout.Button, l.handle)
	if err != nil {
		return fmt.Errorf("provision: %w", err)
	}
	mu.Lock()
	button = in
	mu.Unlock()
	log.Printf("press the button on pin %d %d times", layout.Button.Offset, presses.Limit())

	reason := "press limit"
	select {
	case <-presses.Done():
	case <-ctx.Done():
		reason = signalName(ctx)
		if reason == "" {
			reason = gateCancelled
		}
	}
	unwatch()
	log.Printf("received %d button presses (%s)", presses.Count(), reason)

	publishStatus(pub, tracker, "SHUTDOWN", reason)
	return nil
}
