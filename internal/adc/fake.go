package adc

import (
	"errors"
	"sync"
)

// FakeDevice is a test double that returns scripted conversion bytes.
type FakeDevice struct {
	mu sync.Mutex

	// Samples contains scripted conversion register contents.
	// Each read consumes the next sample; the last one repeats.
	Samples [][2]byte
	index   int

	// Errors, if non-nil at the read index, is returned instead of a sample.
	Errors []error

	// Writes records every write-only transaction.
	Writes [][]byte

	// Reads counts read transactions.
	Reads int

	// WriteError, if set, will be returned by write-only transactions.
	WriteError error

	closed bool
}

// NewFakeDevice creates a FakeDevice with the given samples.
func NewFakeDevice(samples ...[2]byte) *FakeDevice {
	return &FakeDevice{Samples: samples}
}

// Tx implements Device.
func (f *FakeDevice) Tx(w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(r) == 0 {
		if f.WriteError != nil {
			return f.WriteError
		}
		f.Writes = append(f.Writes, append([]byte(nil), w...))
		return nil
	}

	i := f.Reads
	f.Reads++
	if i < len(f.Errors) && f.Errors[i] != nil {
		return f.Errors[i]
	}
	if len(f.Samples) == 0 {
		return errors.New("no samples configured")
	}
	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	copy(r, s[:])
	return nil
}

// ReadCount returns the number of read transactions so far.
func (f *FakeDevice) ReadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reads
}

// Close marks the device closed.
func (f *FakeDevice) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeDevice) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
