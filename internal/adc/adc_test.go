package adc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeExample(t *testing.T) {
	assert.Equal(t, 511, Decode(0x01, 0xFF))
}

func TestDecodeAllPairs(t *testing.T) {
	for b0 := 0; b0 <= 0xFF; b0++ {
		for b1 := 0; b1 <= 0xFF; b1++ {
			got := Decode(byte(b0), byte(b1))
			want := (b0&0x0F)*256 + (b1 & 0xFF)
			if got != want {
				t.Fatalf("Decode(%#x, %#x) = %d, want %d", b0, b1, got, want)
			}
			if got < 0 || got > MaxValue {
				t.Fatalf("Decode(%#x, %#x) = %d out of range", b0, b1, got)
			}
		}
	}
}

func TestDecodeIgnoresUpperNibble(t *testing.T) {
	assert.Equal(t, Decode(0x0A, 0x10), Decode(0xFA, 0x10))
	assert.Equal(t, MaxValue, Decode(0xFF, 0xFF))
	assert.Equal(t, 0, Decode(0xF0, 0x00))
}

func TestConverterConfigure(t *testing.T) {
	dev := NewFakeDevice()
	require.NoError(t, NewConverter(dev).Configure())
	require.Len(t, dev.Writes, 1)
	assert.Equal(t, []byte{RegConfig, ConfigAutoConvert}, dev.Writes[0])
}

func TestConverterConfigureError(t *testing.T) {
	dev := NewFakeDevice()
	dev.WriteError = errors.New("nack")
	err := NewConverter(dev).Configure()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write config register")
}

func TestConverterSample(t *testing.T) {
	dev := NewFakeDevice([2]byte{0x01, 0xFF}, [2]byte{0x0F, 0xFF})
	c := NewConverter(dev)

	r, err := c.Sample()
	require.NoError(t, err)
	assert.Equal(t, 511, r.Value)
	assert.Equal(t, [2]byte{0x01, 0xFF}, r.Raw)
	assert.False(t, r.Timestamp.IsZero())

	r, err = c.Sample()
	require.NoError(t, err)
	assert.Equal(t, 4095, r.Value)
}

func TestConverterSampleError(t *testing.T) {
	dev := NewFakeDevice([2]byte{0, 1})
	dev.Errors = []error{errors.New("bus error")}
	c := NewConverter(dev)

	_, err := c.Sample()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus error")

	r, err := c.Sample()
	require.NoError(t, err)
	assert.Equal(t, 1, r.Value)
}
