package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuitGate(t *testing.T) {
	tests := []struct {
		name string
		gate quitGate
		want string
	}{
		{"q quits", quitGate{in: strings.NewReader("q\nnever read\n"), terminal: true}, gateQuit},
		{"upper Q quits", quitGate{in: strings.NewReader(" Q \r\n"), terminal: true}, gateQuit},
		{"any line opens", quitGate{in: strings.NewReader("hello\nq\n"), terminal: true}, gateLine},
		{"unterminated line", quitGate{in: strings.NewReader("bye"), terminal: true}, gateLine},
		{"eof", quitGate{in: strings.NewReader(""), terminal: true}, gateEOF},
		{"no console", quitGate{in: strings.NewReader("q\n")}, gateNoConsole},
		{"no console hold", quitGate{hold: 10 * time.Millisecond}, gateHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			tt.gate.out = &out
			assert.Equal(t, tt.want, tt.gate.wait(context.Background()))
			if tt.gate.terminal {
				assert.Equal(t, "\nPress Q to quit.\n", out.String())
			} else {
				assert.Empty(t, out.String())
			}
		})
	}
}

func TestQuitGateSingleLine(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	done := make(chan string, 1)
	go func() { done <- quitGate{in: r, out: io.Discard, terminal: true}.wait(context.Background()) }()

	_, err := w.Write([]byte("done\n"))
	require.NoError(t, err)

	select {
	case got := <-done:
		assert.Equal(t, gateLine, got)
	case <-time.After(time.Second):
		t.Fatal("gate still blocked after one line")
	}
}

func TestQuitGateCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan string, 1)
	go func() { done <- quitGate{in: r, out: io.Discard, terminal: true}.wait(ctx) }()
	cancel()

	select {
	case got := <-done:
		assert.Equal(t, gateCancelled, got)
	case <-time.After(time.Second):
		t.Fatal("gate ignored cancellation")
	}

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, gateCancelled, quitGate{hold: time.Hour}.wait(ctx))
}
