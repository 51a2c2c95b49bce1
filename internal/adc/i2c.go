package adc

import (
	"fmt"
	"strconv"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Bus is an open I2C bus bound to one device address.
type Bus struct {
	bus i2c.BusCloser
	dev *i2c.Dev
}

// OpenI2C initialises the periph host drivers and opens the numbered bus.
func OpenI2C(busNumber int, addr uint16) (*Bus, error) {
	// host.Init is safe to call more than once.
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	b, err := i2creg.Open(strconv.Itoa(busNumber))
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %d: %w", busNumber, err)
	}
	return &Bus{
		bus: b,
		dev: &i2c.Dev{Addr: addr, Bus: b},
	}, nil
}

// Tx implements Device.
func (b *Bus) Tx(w, r []byte) error {
	return b.dev.Tx(w, r)
}

// String identifies the bus and address.
func (b *Bus) String() string {
	return fmt.Sprintf("%s@%#02x", b.bus, b.dev.Addr)
}

// Close releases the bus.
func (b *Bus) Close() error {
	return b.bus.Close()
}
