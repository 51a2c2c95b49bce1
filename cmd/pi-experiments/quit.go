package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// Reasons the quit gate opened.
const (
	gateQuit      = "quit"
	gateLine      = "line entered"
	gateEOF       = "console closed"
	gateNoConsole = "no console"
	gateHold      = "hold elapsed"
	gateCancelled = "cancelled"
)

// quitGate blocks the experiment until the operator is done with it.
type quitGate struct {
	in       io.Reader
	out      io.Writer
	terminal bool
	// hold is how long to wait when no terminal is attached; zero skips
	// the gate entirely.
	hold time.Duration
}

// wait blocks until one line is entered, input ends, the hold elapses or
// ctx is done, and returns which of those happened. Any line opens the
// gate; q/Q is reported as a quit.
func (g quitGate) wait(ctx context.Context) string {
	if !g.terminal {
		if g.hold <= 0 {
			log.Printf("no console attached, skipping quit gate")
			return gateNoConsole
		}
		log.Printf("no console attached, running for %v", g.hold)
		t := time.NewTimer(g.hold)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return gateCancelled
		case <-t.C:
			return gateHold
		}
	}

	fmt.Fprintf(g.out, "\nPress Q to quit.\n")

	// A cancelled wait leaves this goroutine blocked in Read on the
	// console until the process exits.
	read := make(chan string, 1)
	go func() {
		line, err := bufio.NewReader(g.in).ReadString('\n')
		if err != nil && line == "" {
			close(read)
			return
		}
		read <- strings.TrimRight(line, "\r\n")
	}()

	select {
	case <-ctx.Done():
		return gateCancelled
	case line, ok := <-read:
		if !ok {
			return gateEOF
		}
		log.Printf("entered: %s", line)
		if strings.EqualFold(strings.TrimSpace(line), "q") {
			return gateQuit
		}
		return gateLine
	}
}
