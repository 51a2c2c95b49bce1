//go:build !linux

package gpio

import "errors"

// RealController is not available on non-Linux platforms.
type RealController struct{}

// NewRealController returns an error on non-Linux platforms.
func NewRealController(chipName string) (*RealController, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ProvisionOutput is not implemented on non-Linux platforms.
func (c *RealController) ProvisionOutput(d PinDescriptor) (Output, error) {
	return nil, errors.New("gpio: not supported")
}

// ProvisionInput is not implemented on non-Linux platforms.
func (c *RealController) ProvisionInput(d PinDescriptor, h EdgeHandler) (Input, error) {
	return nil, errors.New("gpio: not supported")
}

// Shutdown is a no-op on non-Linux platforms.
func (c *RealController) Shutdown() error {
	return nil
}
