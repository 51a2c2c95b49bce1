package mqtt

import "log"

// bufferedMsg is a serialized message held for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest messages published while disconnected,
// overwriting the oldest once full. Callers synchronize access.
type ringBuffer struct {
	buf     []bufferedMsg
	next    int
	count   int
	dropped int
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if r.count == len(r.buf) {
		if r.dropped == 0 {
			log.Printf("mqtt: offline buffer full (%d), dropping oldest messages", len(r.buf))
		}
		r.dropped++
	} else {
		r.count++
	}
	r.buf[r.next] = msg
	r.next = (r.next + 1) % len(r.buf)
}

// drainAll returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	if r.dropped > 0 {
		log.Printf("mqtt: %d messages were dropped while offline", r.dropped)
	}
	out := make([]bufferedMsg, 0, r.count)
	first := (r.next - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(first+i)%len(r.buf)])
	}
	*r = ringBuffer{buf: r.buf}
	return out
}

func (r *ringBuffer) len() int { return r.count }
