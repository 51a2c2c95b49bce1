//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// consumer labels our lines in gpioinfo output.
const consumer = "pi-experiments"

// RealController provisions lines on an actual GPIO chip.
type RealController struct {
	mu      sync.Mutex
	chip    *gpiocdev.Chip
	lines   map[int]*gpiocdev.Line
	outputs map[int]*realOutput
	inputs  map[int]*realInput
	closed  bool
}

// NewRealController opens the named chip (e.g. "gpiochip0").
func NewRealController(chipName string) (*RealController, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealController{
		chip:    chip,
		lines:   make(map[int]*gpiocdev.Line),
		outputs: make(map[int]*realOutput),
		inputs:  make(map[int]*realInput),
	}, nil
}

func (c *RealController) claim(d PinDescriptor, want Direction) error {
	if c.closed {
		return ErrClosed
	}
	if d.Direction != want {
		return fmt.Errorf("%s pin %d: %w", d.Role, d.Offset, ErrDirection)
	}
	if _, ok := c.lines[d.Offset]; ok {
		return fmt.Errorf("%s pin %d: %w", d.Role, d.Offset, ErrAlreadyProvisioned)
	}
	return nil
}

// ProvisionOutput requests the line as an output driven to d.Initial.
func (c *RealController) ProvisionOutput(d PinDescriptor) (Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.claim(d, DirOutput); err != nil {
		return nil, err
	}
	line, err := c.chip.RequestLine(d.Offset, gpiocdev.AsOutput(int(d.Initial)))
	if err != nil {
		return nil, fmt.Errorf("request %s pin %d: %w", d.Role, d.Offset, err)
	}
	out := &realOutput{line: line, desc: d, level: d.Initial}
	c.lines[d.Offset] = line
	c.outputs[d.Offset] = out
	return out, nil
}

// ProvisionInput requests the line as an input with the descriptor's bias
// and delivers both edges to h.
func (c *RealController) ProvisionInput(d PinDescriptor, h EdgeHandler) (Input, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.claim(d, DirInput); err != nil {
		return nil, err
	}
	in := &realInput{desc: d, handler: h}
	in.watching.Store(h != nil)

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	switch d.Pull {
	case PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}
	if h != nil {
		opts = append(opts, gpiocdev.WithBothEdges, gpiocdev.WithEventHandler(in.handle))
		if d.Debounce > 0 {
			opts = append(opts, gpiocdev.WithDebounce(d.Debounce))
		}
	}

	line, err := c.chip.RequestLine(d.Offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s pin %d: %w", d.Role, d.Offset, err)
	}
	in.line = line
	c.lines[d.Offset] = line
	c.inputs[d.Offset] = in
	return in, nil
}

// Shutdown drives shutdown levels, then reconfigures every line to input
// with pull-down (matching Pi boot defaults) before closing it.
func (c *RealController) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, in := range c.inputs {
		in.Unwatch()
	}
	for offset, out := range c.outputs {
		if out.desc.ShutdownLevel != nil {
			if err := out.Set(*out.desc.ShutdownLevel); err != nil {
				errs = append(errs, fmt.Errorf("shutdown level pin %d: %w", offset, err))
			}
		}
	}
	for offset, line := range c.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", offset, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", offset, err))
		}
	}
	if err := c.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

type realOutput struct {
	mu    sync.Mutex
	line  *gpiocdev.Line
	desc  PinDescriptor
	level Level
}

func (o *realOutput) Set(level Level) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.line.SetValue(int(level)); err != nil {
		return fmt.Errorf("set %s pin %d %s: %w", o.desc.Role, o.desc.Offset, level, err)
	}
	o.level = level
	return nil
}

func (o *realOutput) High() error { return o.Set(High) }
func (o *realOutput) Low() error  { return o.Set(Low) }

func (o *realOutput) Toggle() error {
	o.mu.Lock()
	next := o.level.Invert()
	o.mu.Unlock()
	return o.Set(next)
}

func (o *realOutput) Level() Level {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

func (o *realOutput) Offset() int { return o.desc.Offset }

type realInput struct {
	line     *gpiocdev.Line
	desc     PinDescriptor
	handler  EdgeHandler
	watching atomic.Bool
}

func (i *realInput) handle(evt gpiocdev.LineEvent) {
	if !i.watching.Load() {
		return
	}
	level := Low
	if evt.Type == gpiocdev.LineEventRisingEdge {
		level = High
	}
	i.handler(Edge{Role: i.desc.Role, Offset: evt.Offset, Level: level, Time: time.Now()})
}

func (i *realInput) Read() (Level, error) {
	v, err := i.line.Value()
	if err != nil {
		return Low, fmt.Errorf("read %s pin %d: %w", i.desc.Role, i.desc.Offset, err)
	}
	if v != 0 {
		return High, nil
	}
	return Low, nil
}

func (i *realInput) Unwatch() { i.watching.Store(false) }

func (i *realInput) Offset() int { return i.desc.Offset }
