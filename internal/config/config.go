// Package config loads experiment settings: built-in defaults, overridden by
// an optional YAML file, overridden by command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/warthog618/go-gpiocdev/device/rpi"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/pi-experiments/internal/adc"
	"github.com/sweeney/pi-experiments/internal/gpio"
	"github.com/sweeney/pi-experiments/internal/logic"
	"github.com/sweeney/pi-experiments/internal/pwm"
)

// Pins names each line. Values accept BCM numbers ("17"), "GPIO17" or
// header positions ("J8p11").
type Pins struct {
	RedLED    string `yaml:"red_led"`
	YellowLED string `yaml:"yellow_led"`
	GreenLED  string `yaml:"green_led"`
	Button    string `yaml:"button"`
	Motion    string `yaml:"motion"`
}

// ADC configures the I2C converter.
type ADC struct {
	Enabled  bool              `yaml:"enabled"`
	Bus      int               `yaml:"bus"`
	Address  uint16            `yaml:"address"`
	Interval time.Duration     `yaml:"interval"`
	Settle   time.Duration     `yaml:"settle"`
	Breaker  adc.BreakerConfig `yaml:"breaker"`
}

// PWM configures the software PWM ramp on the yellow LED.
type PWM struct {
	Enabled bool          `yaml:"enabled"`
	Range   int           `yaml:"range"`
	Step    float64       `yaml:"step"`
	Tick    time.Duration `yaml:"tick"`
}

// Config is the full experiment configuration.
type Config struct {
	Chip        string        `yaml:"chip"`
	Pins        Pins          `yaml:"pins"`
	Debounce    time.Duration `yaml:"debounce"`
	PressLimit  int64         `yaml:"press_limit"`
	ADC         ADC           `yaml:"adc"`
	PWM         PWM           `yaml:"pwm"`
	Diagnostics bool          `yaml:"diagnostics"`
	Broker      string        `yaml:"broker"`
	HTTPAddr    string        `yaml:"http"`
	Heartbeat   time.Duration `yaml:"heartbeat"`
	// Hold keeps the experiment running for this long when no console is
	// attached. Zero skips the quit gate entirely.
	Hold time.Duration `yaml:"hold"`
}

// Default returns the configuration matching the experiment board.
func Default() Config {
	return Config{
		Chip: gpio.DefaultChip,
		Pins: Pins{
			RedLED:    strconv.Itoa(gpio.PinRedLED),
			YellowLED: strconv.Itoa(gpio.PinYellowLED),
			GreenLED:  strconv.Itoa(gpio.PinGreenLED),
			Button:    strconv.Itoa(gpio.PinButton),
			Motion:    strconv.Itoa(gpio.PinMotion),
		},
		PressLimit: logic.DefaultPressLimit,
		ADC: ADC{
			Enabled:  true,
			Bus:      adc.DefaultBus,
			Address:  adc.DefaultAddress,
			Interval: adc.DefaultInterval,
			Settle:   adc.DefaultSettle,
		},
		PWM: PWM{
			Enabled: true,
			Range:   pwm.DefaultRange,
			Step:    pwm.DefaultStep,
			Tick:    pwm.DefaultTick,
		},
		Diagnostics: true,
		Heartbeat:   15 * time.Minute,
	}
}

// Load returns Default overlaid with the YAML file at path. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Layout resolves the pin names into descriptors.
func (c Config) Layout() (gpio.Layout, error) {
	l := gpio.DefaultLayout()
	for _, p := range []struct {
		name string
		d    *gpio.PinDescriptor
	}{
		{c.Pins.RedLED, &l.RedLED},
		{c.Pins.YellowLED, &l.YellowLED},
		{c.Pins.GreenLED, &l.GreenLED},
		{c.Pins.Button, &l.Button},
		{c.Pins.Motion, &l.Motion},
	} {
		offset, err := rpi.Pin(p.name)
		if err != nil {
			return gpio.Layout{}, fmt.Errorf("%s pin %q: %w", p.d.Role, p.name, err)
		}
		p.d.Offset = offset
	}
	l.Button.Debounce = c.Debounce
	l.Motion.Debounce = c.Debounce
	return l, nil
}

// Validate checks the configuration for values the experiments cannot run with.
func (c Config) Validate() error {
	var errs []error
	l, err := c.Layout()
	if err != nil {
		errs = append(errs, err)
	} else {
		seen := map[int]gpio.Role{}
		for _, d := range l.Descriptors() {
			if prev, ok := seen[d.Offset]; ok {
				errs = append(errs, fmt.Errorf("pin %d assigned to both %s and %s", d.Offset, prev, d.Role))
			}
			seen[d.Offset] = d.Role
		}
	}
	if c.Chip == "" {
		errs = append(errs, errors.New("chip must be set"))
	}
	if c.PressLimit <= 0 {
		errs = append(errs, fmt.Errorf("press_limit must be positive, got %d", c.PressLimit))
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce must not be negative, got %v", c.Debounce))
	}
	if c.ADC.Enabled {
		if c.ADC.Interval <= 0 {
			errs = append(errs, fmt.Errorf("adc.interval must be positive, got %v", c.ADC.Interval))
		}
		if c.ADC.Address == 0 || c.ADC.Address > 0x7F {
			errs = append(errs, fmt.Errorf("adc.address %#x is not a 7-bit address", c.ADC.Address))
		}
	}
	if c.PWM.Enabled {
		if c.PWM.Range <= 0 {
			errs = append(errs, fmt.Errorf("pwm.range must be positive, got %d", c.PWM.Range))
		}
		if c.PWM.Step <= 0 || c.PWM.Step > float64(c.PWM.Range) {
			errs = append(errs, fmt.Errorf("pwm.step must be in (0, %d], got %v", c.PWM.Range, c.PWM.Step))
		}
		if c.PWM.Tick <= 0 {
			errs = append(errs, fmt.Errorf("pwm.tick must be positive, got %v", c.PWM.Tick))
		}
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat))
	}
	return errors.Join(errs...)
}
