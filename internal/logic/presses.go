package logic

import (
	"sync"
	"sync/atomic"
)

// DefaultPressLimit is the number of presses after which the button
// listener releases itself.
const DefaultPressLimit = 3

// PressCounter counts button presses from edge callbacks and fires a
// release callback exactly once when the limit is reached.
type PressCounter struct {
	limit   int64
	count   atomic.Int64
	once    sync.Once
	done    chan struct{}
	release func()
}

// NewPressCounter creates a counter. release may be nil.
func NewPressCounter(limit int64, release func()) *PressCounter {
	if limit <= 0 {
		limit = DefaultPressLimit
	}
	return &PressCounter{
		limit:   limit,
		done:    make(chan struct{}),
		release: release,
	}
}

// Press records one press and returns the count after it. Presses arriving
// after the limit was reached are not counted; ok is false for them.
func (c *PressCounter) Press() (n int64, ok bool) {
	for {
		cur := c.count.Load()
		if cur >= c.limit {
			return cur, false
		}
		if c.count.CompareAndSwap(cur, cur+1) {
			n = cur + 1
			break
		}
	}
	if n == c.limit {
		c.once.Do(func() {
			if c.release != nil {
				c.release()
			}
			close(c.done)
		})
	}
	return n, true
}

// Count returns the presses recorded so far.
func (c *PressCounter) Count() int64 {
	return c.count.Load()
}

// Limit returns the configured limit.
func (c *PressCounter) Limit() int64 {
	return c.limit
}

// Done is closed once the limit has been reached and release has run.
func (c *PressCounter) Done() <-chan struct{} {
	return c.done
}
