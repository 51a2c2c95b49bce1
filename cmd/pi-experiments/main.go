// Command pi-experiments exercises Raspberry Pi GPIO, an I2C ADC and a
// software PWM output on the experiment breadboard.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sweeney/pi-experiments/internal/adc"
	"github.com/sweeney/pi-experiments/internal/config"
	"github.com/sweeney/pi-experiments/internal/diag"
	"github.com/sweeney/pi-experiments/internal/gpio"
	"github.com/sweeney/pi-experiments/internal/mqtt"
	"github.com/sweeney/pi-experiments/internal/selftest"
	"github.com/sweeney/pi-experiments/internal/status"
)

func main() {
	ctx, stop := signalContext()
	defer stop()

	a := &app{env: hostEnv()}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// signalError is the cancellation cause when SIGINT or SIGTERM arrives.
type signalError struct{ sig os.Signal }

func (e signalError) Error() string { return "received " + e.sig.String() }

// signalContext returns a context cancelled by SIGINT/SIGTERM, with the
// signal recorded as the cause.
func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigCh:
			log.Printf("received %v, shutting down", s)
			cancel(signalError{s})
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel(context.Canceled)
	}
}

// signalName names the signal that cancelled ctx, or "" if none did.
func signalName(ctx context.Context) string {
	se, ok := context.Cause(ctx).(signalError)
	if !ok {
		return ""
	}
	switch se.sig {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// adcDevice is an I2C converter handle that must be released.
type adcDevice interface {
	adc.Device
	Close() error
}

// env is everything the experiments reach outside the process.
type env struct {
	newController func(chip string) (gpio.Controller, error)
	platform      diag.Platform
	openADC       func(bus int, addr uint16) (adcDevice, error)
	newPublisher  func(cfg config.Config, tracker *status.Tracker) mqtt.Publisher
	gate          quitGate
	sleep         selftest.SleepFunc
}

func hostEnv() env {
	return env{
		newController: func(chip string) (gpio.Controller, error) {
			c, err := gpio.NewRealController(chip)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		platform: diag.NewHostPlatform(),
		openADC: func(bus int, addr uint16) (adcDevice, error) {
			b, err := adc.OpenI2C(bus, addr)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
		newPublisher: newPublisher,
		gate: quitGate{
			in:       os.Stdin,
			out:      os.Stdout,
			terminal: term.IsTerminal(int(os.Stdin.Fd())),
		},
		sleep: selftest.Sleep,
	}
}

// newPublisher connects to the configured broker. Without a broker, or when
// the first connection fails, events are only logged.
func newPublisher(cfg config.Config, tracker *status.Tracker) mqtt.Publisher {
	if cfg.Broker == "" {
		return mqtt.NopPublisher{}
	}
	p, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:             cfg.Broker,
		OnConnectionChange: tracker.SetMQTTConnected,
	})
	if err != nil {
		log.Printf("warning: mqtt unavailable, events will not be published: %v", err)
		return mqtt.NopPublisher{}
	}
	tracker.SetMQTTConnected(p.IsConnected())
	return p
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pi-experiments",
		Short:         "Raspberry Pi GPIO, I2C and PWM experiments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.flags.registerCommon(root)
	root.AddCommand(a.runCmd(), a.buttonsCmd(), a.infoCmd())
	return root
}

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full experiment: diagnostics, listeners, LED test, ADC and PWM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.flags.resolve(cmd)
			if err != nil {
				return err
			}
			return runExperiment(cmd.Context(), cfg, a.env)
		},
	}
	a.flags.registerRun(cmd)
	return cmd
}

func (a *app) buttonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buttons",
		Short: "Run the LED self-test, then count button presses until the limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.flags.resolve(cmd)
			if err != nil {
				return err
			}
			return runButtons(cmd.Context(), cfg, a.env)
		},
	}
	a.flags.registerButtons(cmd)
	return cmd
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print system and hardware diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showDiagnostics(a.env.platform)
		},
	}
}

func showDiagnostics(p diag.Platform) error {
	report, err := diag.Collect(p)
	if err != nil {
		return fmt.Errorf("diagnostics: %w", err)
	}
	report.Log(log.Printf)
	return nil
}
