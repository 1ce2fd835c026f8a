package usart

import "sync/atomic"

// RingSize is the capacity of the interrupt receive ring. Must be a power
// of two.
const RingSize = 64

// ring is a single-producer/single-consumer byte FIFO. HandleInterrupt is
// the only writer and the Read methods the only reader, so head and tail
// each have a single owner and no lock is needed.
type ring struct {
	buf      [RingSize]byte
	head     atomic.Uint32 // next write, owned by the producer
	tail     atomic.Uint32 // next read, owned by the consumer
	overruns atomic.Uint32
}

// put appends b. It reports false and counts an overrun when the ring is full.
func (r *ring) put(b byte) bool {
	head := r.head.Load()
	if head-r.tail.Load() == RingSize {
		r.overruns.Add(1)
		return false
	}
	r.buf[head%RingSize] = b
	r.head.Store(head + 1)
	return true
}

func (r *ring) get() (byte, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return 0, false
	}
	b := r.buf[tail%RingSize]
	r.tail.Store(tail + 1)
	return b, true
}

// Len returns the number of bytes waiting to be read.
func (r *ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

func (r *ring) reset() {
	r.tail.Store(r.head.Load())
}
