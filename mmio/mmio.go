// Package mmio is the register access layer. It gives typed, width-correct
// access to 32-bit memory-mapped registers through a Bus, so the same driver
// code runs against real hardware (TinyGo builds) and against a simulated
// chip (regular Go builds and tests).
//
// The layer performs no ownership checks. Register blocks are only handed out
// by ownership tokens in package device.
package mmio

// Bus performs volatile 32-bit loads and stores.
type Bus interface {
	Load(addr uintptr) uint32
	Store(addr uintptr, v uint32)
}

// Aliaser is implemented by buses that support the EFM32 bit-set and
// bit-clear alias regions, turning a read-modify-write into a single store.
type Aliaser interface {
	SetBits(addr uintptr, mask uint32)
	ClearBits(addr uintptr, mask uint32)
}

// Alias region offsets for EFM32 Series 1 peripherals.
const (
	SetAliasOffset   = 0x06000000
	ClearAliasOffset = 0x04000000
)

// Block is a peripheral register block at a fixed base address.
type Block struct {
	bus  Bus
	base uintptr
}

// NewBlock returns the register block at base on bus.
func NewBlock(bus Bus, base uintptr) Block {
	return Block{bus: bus, base: base}
}

// Base returns the block's base address.
func (b Block) Base() uintptr { return b.base }

// Bus returns the bus the block lives on.
func (b Block) Bus() Bus { return b.bus }

// Valid reports whether the block is backed by a bus.
func (b Block) Valid() bool { return b.bus != nil }

// Reg returns the register at offset off.
func (b Block) Reg(off uintptr) Register {
	return Register{bus: b.bus, addr: b.base + off}
}

// ReadField returns the value of f, shifted down to bit 0.
func (b Block) ReadField(f Field) uint32 {
	return (b.Reg(f.Offset).Get() >> f.Pos) & f.valueMask()
}

// WriteField replaces f with v, leaving the other bits of the register intact.
func (b Block) WriteField(f Field, v uint32) {
	b.Reg(f.Offset).ReplaceBits(v, f.valueMask(), f.Pos)
}

// Register is a single 32-bit register.
type Register struct {
	bus  Bus
	addr uintptr
}

// Addr returns the register address.
func (r Register) Addr() uintptr { return r.addr }

// Get returns the value of the register.
func (r Register) Get() uint32 {
	return r.bus.Load(r.addr)
}

// Set writes v to the register.
func (r Register) Set(v uint32) {
	r.bus.Store(r.addr, v)
}

// SetBits sets the bits in mask, using the set alias if the bus has one.
func (r Register) SetBits(mask uint32) {
	if a, ok := r.bus.(Aliaser); ok {
		a.SetBits(r.addr, mask)
		return
	}
	r.bus.Store(r.addr, r.bus.Load(r.addr)|mask)
}

// ClearBits clears the bits in mask, using the clear alias if the bus has one.
func (r Register) ClearBits(mask uint32) {
	if a, ok := r.bus.(Aliaser); ok {
		a.ClearBits(r.addr, mask)
		return
	}
	r.bus.Store(r.addr, r.bus.Load(r.addr)&^mask)
}

// HasBits reports whether any bit of mask is set.
func (r Register) HasBits(mask uint32) bool {
	return r.Get()&mask != 0
}

// ReplaceBits replaces the bits selected by mask<<pos with value<<pos.
func (r Register) ReplaceBits(value uint32, mask uint32, pos uint8) {
	v := r.Get()
	v &^= mask << pos
	v |= (value & mask) << pos
	r.Set(v)
}

// Field describes a bit field inside a register of a block.
type Field struct {
	Offset uintptr
	Pos    uint8
	Width  uint8
}

func (f Field) valueMask() uint32 {
	if f.Width >= 32 {
		return 0xFFFFFFFF
	}
	return (1 << f.Width) - 1
}

// Mask returns the in-place mask of the field.
func (f Field) Mask() uint32 {
	return f.valueMask() << f.Pos
}

// Value returns v shifted into position, truncated to the field width.
func (f Field) Value(v uint32) uint32 {
	return (v & f.valueMask()) << f.Pos
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint32 {
	return f.valueMask()
}

// Bit returns a single-bit field at pos.
func Bit(offset uintptr, pos uint8) Field {
	return Field{Offset: offset, Pos: pos, Width: 1}
}
