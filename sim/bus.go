// Package sim is a register-level simulation of the EFM32PG12 peripherals the
// HAL drives. It implements mmio.Bus (with the bit-set and bit-clear alias
// regions) so drivers run unmodified on the host, and it records every write
// so tests can assert on exact register traffic, or on the lack of it.
package sim

import (
	"sync"

	"efm32hal/mmio"
)

// Peripheral address window covered by the alias regions
const (
	periphStart = 0x40000000
	periphEnd   = 0x40100000
)

// AccessKind tells how a logged write reached the register.
type AccessKind uint8

const (
	Direct AccessKind = iota
	SetAlias
	ClearAlias
)

// Access is one logged register write.
type Access struct {
	Addr  uintptr
	Value uint32 // value presented on the bus (the mask for alias writes)
	Kind  AccessKind
}

// ReadHook computes the value seen by a load. stored is the backing value.
type ReadHook func(stored uint32) uint32

// WriteHook receives the previous backing value and the value being written
// (already merged for alias writes) and returns what to store.
type WriteHook func(old, v uint32) uint32

// Bus is a simulated memory-mapped bus. It is safe for concurrent use; hooks
// run with the bus lock held and must use the unlocked peek/poke helpers.
type Bus struct {
	mu         sync.Mutex
	mem        map[uintptr]uint32
	readHooks  map[uintptr]ReadHook
	writeHooks map[uintptr]WriteHook
	log        []Access
	logEnabled bool
}

// NewBus returns an empty bus with every register reading zero.
func NewBus() *Bus {
	return &Bus{
		mem:        make(map[uintptr]uint32),
		readHooks:  make(map[uintptr]ReadHook),
		writeHooks: make(map[uintptr]WriteHook),
		logEnabled: true,
	}
}

var _ mmio.Bus = (*Bus)(nil)
var _ mmio.Aliaser = (*Bus)(nil)

// Load implements mmio.Bus.
func (b *Bus) Load(addr uintptr) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.mem[addr]
	if h, ok := b.readHooks[addr]; ok {
		v = h(v)
	}
	return v
}

// Store implements mmio.Bus. Stores into the alias regions are decoded into
// bit-set or bit-clear operations on the target register.
func (b *Bus) Store(addr uintptr, v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kind := Direct
	target := addr
	switch {
	case inWindow(addr, mmio.SetAliasOffset):
		kind, target = SetAlias, addr-mmio.SetAliasOffset
	case inWindow(addr, mmio.ClearAliasOffset):
		kind, target = ClearAlias, addr-mmio.ClearAliasOffset
	}
	b.write(target, v, kind)
}

// SetBits implements mmio.Aliaser.
func (b *Bus) SetBits(addr uintptr, mask uint32) {
	b.Store(addr+mmio.SetAliasOffset, mask)
}

// ClearBits implements mmio.Aliaser.
func (b *Bus) ClearBits(addr uintptr, mask uint32) {
	b.Store(addr+mmio.ClearAliasOffset, mask)
}

func inWindow(addr uintptr, offset uintptr) bool {
	return addr >= periphStart+offset && addr < periphEnd+offset
}

func (b *Bus) write(addr uintptr, v uint32, kind AccessKind) {
	if b.logEnabled {
		b.log = append(b.log, Access{Addr: addr, Value: v, Kind: kind})
	}
	old := b.mem[addr]
	next := v
	switch kind {
	case SetAlias:
		next = old | v
	case ClearAlias:
		next = old &^ v
	}
	if h, ok := b.writeHooks[addr]; ok {
		next = h(old, next)
	}
	b.mem[addr] = next
}

// OnRead installs a read hook for addr.
func (b *Bus) OnRead(addr uintptr, h ReadHook) {
	b.mu.Lock()
	b.readHooks[addr] = h
	b.mu.Unlock()
}

// OnWrite installs a write hook for addr.
func (b *Bus) OnWrite(addr uintptr, h WriteHook) {
	b.mu.Lock()
	b.writeHooks[addr] = h
	b.mu.Unlock()
}

// Peek returns the backing value of addr without running hooks.
func (b *Bus) Peek(addr uintptr) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mem[addr]
}

// Poke sets the backing value of addr without running hooks or logging.
func (b *Bus) Poke(addr uintptr, v uint32) {
	b.mu.Lock()
	b.mem[addr] = v
	b.mu.Unlock()
}

func (b *Bus) peek(addr uintptr) uint32    { return b.mem[addr] }
func (b *Bus) poke(addr uintptr, v uint32) { b.mem[addr] = v }

// Writes returns a copy of the write log.
func (b *Bus) Writes() []Access {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Access, len(b.log))
	copy(out, b.log)
	return out
}

// WriteCount returns the number of logged writes.
func (b *Bus) WriteCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.log)
}

// WritesTo returns the logged writes that targeted addr.
func (b *Bus) WritesTo(addr uintptr) []Access {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Access
	for _, a := range b.log {
		if a.Addr == addr {
			out = append(out, a)
		}
	}
	return out
}

// ResetLog clears the write log.
func (b *Bus) ResetLog() {
	b.mu.Lock()
	b.log = b.log[:0]
	b.mu.Unlock()
}

// SetLogging turns write logging on or off.
func (b *Bus) SetLogging(enabled bool) {
	b.mu.Lock()
	b.logEnabled = enabled
	b.mu.Unlock()
}

func (b *Bus) locked(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}
