package gpio

import (
	"fmt"
	"sync"
	"time"
)

// FakeController is a test double that records provisioning and lets tests
// inject edges. Safe for concurrent use.
type FakeController struct {
	mu      sync.Mutex
	Outputs map[Role]*FakeOutput
	Inputs  map[Role]*FakeInput
	offsets map[int]Role

	// ProvisionError, if set for a role, is returned when that role is provisioned.
	ProvisionError map[Role]error

	// ShutdownCalls counts calls to Shutdown.
	ShutdownCalls int
	closed        bool
}

// NewFakeController creates an empty FakeController.
func NewFakeController() *FakeController {
	return &FakeController{
		Outputs:        make(map[Role]*FakeOutput),
		Inputs:         make(map[Role]*FakeInput),
		offsets:        make(map[int]Role),
		ProvisionError: make(map[Role]error),
	}
}

func (c *FakeController) claim(d PinDescriptor, want Direction) error {
	if c.closed {
		return ErrClosed
	}
	if err := c.ProvisionError[d.Role]; err != nil {
		return err
	}
	if d.Direction != want {
		return fmt.Errorf("%s pin %d: %w", d.Role, d.Offset, ErrDirection)
	}
	if _, ok := c.offsets[d.Offset]; ok {
		return fmt.Errorf("%s pin %d: %w", d.Role, d.Offset, ErrAlreadyProvisioned)
	}
	c.offsets[d.Offset] = d.Role
	return nil
}

// ProvisionOutput records a FakeOutput at d.Initial.
func (c *FakeController) ProvisionOutput(d PinDescriptor) (Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.claim(d, DirOutput); err != nil {
		return nil, err
	}
	out := &FakeOutput{Desc: d, level: d.Initial}
	c.Outputs[d.Role] = out
	return out, nil
}

// ProvisionInput records a FakeInput whose edges are injected with Emit.
func (c *FakeController) ProvisionInput(d PinDescriptor, h EdgeHandler) (Input, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.claim(d, DirInput); err != nil {
		return nil, err
	}
	in := &FakeInput{Desc: d, handler: h, watching: h != nil}
	if d.Pull == PullUp {
		in.level = High
	}
	c.Inputs[d.Role] = in
	return in, nil
}

// Shutdown applies shutdown levels and marks the controller closed.
func (c *FakeController) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ShutdownCalls++
	if c.closed {
		return nil
	}
	c.closed = true
	for _, in := range c.Inputs {
		in.Unwatch()
	}
	for _, out := range c.Outputs {
		if out.Desc.ShutdownLevel != nil {
			out.Set(*out.Desc.ShutdownLevel)
		}
	}
	return nil
}

// Closed reports whether Shutdown has been called.
func (c *FakeController) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Output returns the recorded output for a role, or nil.
func (c *FakeController) Output(r Role) *FakeOutput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Outputs[r]
}

// Input returns the recorded input for a role, or nil.
func (c *FakeController) Input(r Role) *FakeInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Inputs[r]
}

// FakeOutput records every level written to it.
type FakeOutput struct {
	mu      sync.Mutex
	Desc    PinDescriptor
	level   Level
	history []Level

	// SetError, if set, will be returned by Set.
	SetError error
}

func (o *FakeOutput) Set(level Level) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.SetError != nil {
		return o.SetError
	}
	o.level = level
	o.history = append(o.history, level)
	return nil
}

func (o *FakeOutput) High() error { return o.Set(High) }
func (o *FakeOutput) Low() error  { return o.Set(Low) }

func (o *FakeOutput) Toggle() error {
	return o.Set(o.Level().Invert())
}

func (o *FakeOutput) Level() Level {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

func (o *FakeOutput) Offset() int { return o.Desc.Offset }

// History returns a copy of every level written, oldest first.
func (o *FakeOutput) History() []Level {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Level(nil), o.history...)
}

// FakeInput delivers injected edges to its handler synchronously.
type FakeInput struct {
	mu       sync.Mutex
	Desc     PinDescriptor
	handler  EdgeHandler
	level    Level
	watching bool
}

// Emit sets the input level and, while watched, delivers an edge.
// It reports whether the edge was delivered.
func (i *FakeInput) Emit(level Level) bool {
	i.mu.Lock()
	i.level = level
	h := i.handler
	watching := i.watching
	i.mu.Unlock()

	if !watching || h == nil {
		return false
	}
	h(Edge{Role: i.Desc.Role, Offset: i.Desc.Offset, Level: level, Time: time.Now()})
	return true
}

func (i *FakeInput) Read() (Level, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.level, nil
}

func (i *FakeInput) Unwatch() {
	i.mu.Lock()
	i.watching = false
	i.mu.Unlock()
}

// Watching reports whether edges are still delivered.
func (i *FakeInput) Watching() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.watching
}

func (i *FakeInput) Offset() int { return i.Desc.Offset }
