package adc

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// DefaultInterval is the time between samples.
const DefaultInterval = time.Second

// Default circuit breaker settings.
const (
	defaultMaxFailures uint32        = 5
	defaultCooldown    time.Duration = 30 * time.Second
)

// BreakerConfig configures how repeated read failures are isolated.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before reads are
	// suspended. Zero uses the default.
	MaxFailures uint32 `yaml:"max_failures"`
	// Cooldown is how long reads stay suspended before one probe is allowed.
	Cooldown time.Duration `yaml:"cooldown"`
	// Disabled never suspends reads: every tick hits the bus and every
	// failure is reported.
	Disabled bool `yaml:"disabled"`
}

// Poller samples a Converter on every tick. Read failures never stop the
// loop; after MaxFailures consecutive failures reads are suspended for
// Cooldown so a missing device does not flood the log.
type Poller struct {
	conv     *Converter
	breaker  *gobreaker.CircuitBreaker[Reading]
	disabled bool

	// OnReading receives every successful sample.
	OnReading func(Reading)
	// OnError receives every failed read. Suspended ticks are not reported.
	OnError func(error)
	// OnStateChange receives breaker transitions, e.g. "closed" -> "open".
	OnStateChange func(from, to string)
}

// NewPoller creates a poller for conv.
func NewPoller(conv *Converter, cfg BreakerConfig) *Poller {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	cooldown := cfg.Cooldown
	if cooldown == 0 {
		cooldown = defaultCooldown
	}

	p := &Poller{conv: conv, disabled: cfg.Disabled}
	p.breaker = gobreaker.NewCircuitBreaker[Reading](gobreaker.Settings{
		Name:        "adc",
		MaxRequests: 1, // one probe in half-open state
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return !cfg.Disabled && counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if p.OnStateChange != nil {
				p.OnStateChange(from.String(), to.String())
			}
		},
	})
	return p
}

// Poll takes one sample. It reports whether a read was attempted.
func (p *Poller) Poll() bool {
	r, err := p.breaker.Execute(p.conv.Sample)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return false
		}
		if p.OnError != nil {
			p.OnError(err)
		}
		return true
	}
	if p.OnReading != nil {
		p.OnReading(r)
	}
	return true
}

// State returns the breaker state ("closed", "half-open" or "open"), or
// "disabled".
func (p *Poller) State() string {
	if p.disabled {
		return "disabled"
	}
	return p.breaker.State().String()
}

// Run samples immediately and then once per tick until ctx is done.
func (p *Poller) Run(ctx context.Context, tick <-chan time.Time) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		p.Poll()
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		}
	}
}
