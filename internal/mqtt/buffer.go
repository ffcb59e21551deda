package mqtt

// bufferedMsg is a serialized message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer holds messages published while the broker is unreachable. When
// full it overwrites the oldest entry, so the newest light commands survive
// an outage. Not safe for concurrent use; the caller holds the publisher lock.
type ringBuffer struct {
	slots   []bufferedMsg
	next    int // slot the next push writes
	count   int
	dropped int // overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{slots: make([]bufferedMsg, capacity)}
}

// push stores msg. It returns true only for the first overwrite after a
// drain, so the publisher warns once per outage instead of once per message.
func (r *ringBuffer) push(msg bufferedMsg) (firstDrop bool) {
	r.slots[r.next] = msg
	r.next = (r.next + 1) % len(r.slots)
	if r.count < len(r.slots) {
		r.count++
		return false
	}
	r.dropped++
	return r.dropped == 1
}

// drain empties the buffer, returning the held messages oldest first and how
// many were overwritten while it filled.
func (r *ringBuffer) drain() (msgs []bufferedMsg, dropped int) {
	if r.count > 0 {
		msgs = make([]bufferedMsg, 0, r.count)
		oldest := (r.next - r.count + len(r.slots)) % len(r.slots)
		for i := 0; i < r.count; i++ {
			msgs = append(msgs, r.slots[(oldest+i)%len(r.slots)])
		}
	}
	dropped = r.dropped
	clear(r.slots)
	r.next, r.count, r.dropped = 0, 0, 0
	return msgs, dropped
}

func (r *ringBuffer) capacity() int { return len(r.slots) }

func (r *ringBuffer) len() int { return r.count }
