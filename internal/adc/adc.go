// Package adc reads a 12-bit I2C analog-to-digital converter.
package adc

import (
	"fmt"
	"time"
)

// Bus and register layout of the converter on the experiment board.
const (
	DefaultBus     = 1
	DefaultAddress = 0x55

	RegConversion = 0x00
	RegConfig     = 0x02

	// ConfigAutoConvert enables automatic conversion mode.
	ConfigAutoConvert = 0x20

	// MaxValue is the largest 12-bit sample.
	MaxValue = 0x0FFF
)

// DefaultSettle is how long the converter is given after configuration.
const DefaultSettle = 500 * time.Millisecond

// Decode converts the two conversion-register bytes to a 12-bit sample.
func Decode(b0, b1 byte) int {
	return int(b0&0x0F)*256 + int(b1)
}

// Device performs a combined write-then-read transaction. *i2c.Dev from
// periph.io satisfies it.
type Device interface {
	Tx(w, r []byte) error
}

// Reading is one decoded sample.
type Reading struct {
	Timestamp time.Time
	Raw       [2]byte
	Value     int
}

// Converter talks to the ADC through a Device.
type Converter struct {
	dev Device
	now func() time.Time
}

// NewConverter wraps dev.
func NewConverter(dev Device) *Converter {
	return &Converter{dev: dev, now: time.Now}
}

// Configure writes the auto-convert control byte.
func (c *Converter) Configure() error {
	if err := c.dev.Tx([]byte{RegConfig, ConfigAutoConvert}, nil); err != nil {
		return fmt.Errorf("write config register: %w", err)
	}
	return nil
}

// Sample reads the conversion register.
func (c *Converter) Sample() (Reading, error) {
	var buf [2]byte
	if err := c.dev.Tx([]byte{RegConversion}, buf[:]); err != nil {
		return Reading{}, fmt.Errorf("read conversion register: %w", err)
	}
	return Reading{
		Timestamp: c.now(),
		Raw:       buf,
		Value:     Decode(buf[0], buf[1]),
	}, nil
}
