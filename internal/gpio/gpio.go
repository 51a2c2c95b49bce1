// Package gpio provides role-described GPIO provisioning with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"time"
)

// Level is the logical level of a line.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Invert returns the opposite level.
func (l Level) Invert() Level {
	if l == High {
		return Low
	}
	return High
}

// Direction of a provisioned line.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
)

// Pull is the bias applied to an input line.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

func (p Pull) String() string {
	switch p {
	case PullUp:
		return "pull-up"
	case PullDown:
		return "pull-down"
	default:
		return "none"
	}
}

// Role names the purpose a pin serves in the harness.
type Role string

const (
	RoleRedLED    Role = "red-led"
	RoleYellowLED Role = "yellow-led"
	RoleGreenLED  Role = "green-led"
	RoleButton    Role = "button"
	RoleMotion    Role = "motion"
)

// PinDescriptor describes a line by capability rather than by vendor pin number.
type PinDescriptor struct {
	Role      Role
	Offset    int // BCM line offset on the chip
	Direction Direction
	Pull      Pull
	// Initial is the level an output is driven to when provisioned.
	Initial Level
	// ShutdownLevel, if set, is driven onto an output before it is released.
	ShutdownLevel *Level
	// Debounce is applied by the kernel to input edges (0 disables).
	Debounce time.Duration
}

// Edge is a single level change delivered for a watched input.
type Edge struct {
	Role   Role
	Offset int
	Level  Level
	Time   time.Time
}

// EdgeHandler receives edges. It is called from a goroutine owned by the
// controller, never from the goroutine that provisioned the input.
type EdgeHandler func(Edge)

// Output is a provisioned output line.
type Output interface {
	Set(level Level) error
	High() error
	Low() error
	Toggle() error
	// Level returns the last level written.
	Level() Level
	Offset() int
}

// Input is a provisioned input line.
type Input interface {
	Read() (Level, error)
	// Unwatch stops edge delivery. Safe to call more than once.
	Unwatch()
	Offset() int
}

// Controller grants exclusive ownership of lines and releases them on Shutdown.
type Controller interface {
	ProvisionOutput(d PinDescriptor) (Output, error)
	ProvisionInput(d PinDescriptor, h EdgeHandler) (Input, error)
	// Shutdown applies shutdown levels and releases every line.
	Shutdown() error
}

var (
	// ErrAlreadyProvisioned is returned when a line is requested twice.
	ErrAlreadyProvisioned = errors.New("gpio: line already provisioned")
	// ErrClosed is returned for operations after Shutdown.
	ErrClosed = errors.New("gpio: controller shut down")
	// ErrDirection is returned when a descriptor's direction does not match the request.
	ErrDirection = errors.New("gpio: descriptor direction mismatch")
)

// DefaultChip is the Raspberry Pi GPIO character device.
const DefaultChip = "gpiochip0"

// Pin definitions (BCM numbering)
const (
	PinRedLED    = 6  // wiringPi 22
	PinYellowLED = 13 // wiringPi 23, software PWM
	PinGreenLED  = 21 // wiringPi 29
	PinButton    = 5  // wiringPi 21
	PinMotion    = 17 // wiringPi 0
)

// Layout is the full set of pins used by the experiments.
type Layout struct {
	RedLED    PinDescriptor
	YellowLED PinDescriptor
	GreenLED  PinDescriptor
	Button    PinDescriptor
	Motion    PinDescriptor
}

// DefaultLayout returns the breadboard wiring the experiments were built on.
func DefaultLayout() Layout {
	low := Low
	return Layout{
		RedLED:    PinDescriptor{Role: RoleRedLED, Offset: PinRedLED, Direction: DirOutput, Initial: Low, ShutdownLevel: &low},
		YellowLED: PinDescriptor{Role: RoleYellowLED, Offset: PinYellowLED, Direction: DirOutput, Initial: Low, ShutdownLevel: &low},
		GreenLED:  PinDescriptor{Role: RoleGreenLED, Offset: PinGreenLED, Direction: DirOutput, Initial: Low},
		Button:    PinDescriptor{Role: RoleButton, Offset: PinButton, Direction: DirInput, Pull: PullUp},
		Motion:    PinDescriptor{Role: RoleMotion, Offset: PinMotion, Direction: DirInput, Pull: PullDown},
	}
}

// Descriptors returns the layout as a slice in a stable order.
func (l Layout) Descriptors() []PinDescriptor {
	return []PinDescriptor{l.RedLED, l.YellowLED, l.GreenLED, l.Button, l.Motion}
}
