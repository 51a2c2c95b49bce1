package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/pi-experiments/internal/config"
)

// app binds the command tree to its environment.
type app struct {
	env   env
	flags flagValues
}

// flagValues holds command-line overrides. A flag only overrides the
// config file when it was set explicitly.
type flagValues struct {
	configPath string
	chip       string
	debounce   time.Duration
	broker     string
	httpAddr   string
	heartbeat  time.Duration

	hold          time.Duration
	noDiagnostics bool
	noADC         bool
	noPWM         bool
	adcBus        int
	adcAddress    uint16

	presses int64
}

func (f *flagValues) registerCommon(cmd *cobra.Command) {
	d := config.Default()
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&f.chip, "chip", d.Chip, "GPIO chip")
	pf.DurationVar(&f.debounce, "debounce", d.Debounce, "Input debounce period (0 disables)")
	pf.StringVar(&f.broker, "broker", d.Broker, "MQTT broker address (empty to disable)")
	pf.StringVar(&f.httpAddr, "http", d.HTTPAddr, "HTTP status address (empty to disable)")
	pf.DurationVar(&f.heartbeat, "heartbeat", d.Heartbeat, "Heartbeat interval (0 to disable)")
}

func (f *flagValues) registerRun(cmd *cobra.Command) {
	d := config.Default()
	fs := cmd.Flags()
	fs.DurationVar(&f.hold, "hold", d.Hold, "Time to keep running when no console is attached")
	fs.BoolVar(&f.noDiagnostics, "no-diagnostics", false, "Skip the diagnostics report")
	fs.BoolVar(&f.noADC, "no-adc", false, "Do not poll the I2C ADC")
	fs.BoolVar(&f.noPWM, "no-pwm", false, "Do not drive the PWM ramp")
	fs.IntVar(&f.adcBus, "adc-bus", d.ADC.Bus, "I2C bus number of the ADC")
	fs.Uint16Var(&f.adcAddress, "adc-address", d.ADC.Address, "I2C address of the ADC")
}

func (f *flagValues) registerButtons(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Int64Var(&f.presses, "presses", config.Default().PressLimit, "Button presses before exiting")
}

// resolve loads the config file and applies every flag set on cmd.
func (f *flagValues) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("chip") {
		cfg.Chip = f.chip
	}
	if changed("debounce") {
		cfg.Debounce = f.debounce
	}
	if changed("broker") {
		cfg.Broker = f.broker
	}
	if changed("http") {
		cfg.HTTPAddr = f.httpAddr
	}
	if changed("heartbeat") {
		cfg.Heartbeat = f.heartbeat
	}
	if changed("hold") {
		cfg.Hold = f.hold
	}
	if changed("no-diagnostics") {
		cfg.Diagnostics = !f.noDiagnostics
	}
	if changed("no-adc") {
		cfg.ADC.Enabled = !f.noADC
	}
	if changed("no-pwm") {
		cfg.PWM.Enabled = !f.noPWM
	}
	if changed("adc-bus") {
		cfg.ADC.Bus = f.adcBus
	}
	if changed("adc-address") {
		cfg.ADC.Address = f.adcAddress
	}
	if changed("presses") {
		cfg.PressLimit = f.presses
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
