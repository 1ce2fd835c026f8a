package sim

import "efm32hal/pac"

// Target is a device on a simulated I2C bus.
type Target interface {
	// Write receives one byte from the controller and returns whether it
	// is acknowledged.
	Write(b byte) bool
	// Read returns the next byte the target sends.
	Read() byte
}

// Starter is implemented by targets that want to know when they are
// addressed.
type Starter interface {
	Start(read bool)
}

// I2C models an I2C controller in master mode with attached targets.
type I2C struct {
	bus     *Bus
	base    uintptr
	targets map[uint8]Target

	startPending bool
	txPending    bool
	txValue      uint32
	active       Target
	reading      bool
	silent       bool
}

func newI2C(bus *Bus, p pac.Peripheral) *I2C {
	c := &I2C{bus: bus, base: p.Base(), targets: make(map[uint8]Target)}
	// BUSY is set out of reset until an ABORT
	bus.Poke(c.base+pac.I2C_STATE, pac.I2C_STATE_BUSY)
	bus.OnWrite(c.base+pac.I2C_CMD, c.cmd)
	bus.OnWrite(c.base+pac.I2C_TXDATA, c.txData)
	bus.OnRead(c.base+pac.I2C_RXDATA, c.rxData)
	bus.OnWrite(c.base+pac.I2C_IFC, func(_, v uint32) uint32 {
		flags := c.base + pac.I2C_IF
		bus.poke(flags, bus.peek(flags)&^v)
		return 0
	})
	return c
}

func (c *I2C) raise(flags uint32) {
	if c.silent {
		return
	}
	reg := c.base + pac.I2C_IF
	c.bus.poke(reg, c.bus.peek(reg)|flags)
}

func (c *I2C) cmd(_, v uint32) uint32 {
	if v&pac.I2C_CMD_ABORT != 0 {
		c.reset()
		c.bus.poke(c.base+pac.I2C_STATE, 0)
	}
	if v&pac.I2C_CMD_CLEARTX != 0 {
		c.txPending = false
	}
	if v&pac.I2C_CMD_START != 0 {
		c.active = nil
		if c.txPending {
			c.txPending = false
			c.address(c.txValue)
		} else {
			c.startPending = true
		}
	}
	if v&pac.I2C_CMD_ACK != 0 && c.reading && c.active != nil {
		c.receive()
	}
	if v&pac.I2C_CMD_STOP != 0 {
		c.reset()
		c.raise(pac.I2C_IF_MSTOP)
	}
	return 0
}

func (c *I2C) reset() {
	c.startPending = false
	c.txPending = false
	c.active = nil
	c.reading = false
}

func (c *I2C) txData(_, v uint32) uint32 {
	v &= 0xFF
	switch {
	case c.startPending:
		c.startPending = false
		c.address(v)
	case c.active != nil && !c.reading:
		if c.active.Write(byte(v)) {
			c.raise(pac.I2C_IF_ACK)
		} else {
			c.raise(pac.I2C_IF_NACK)
		}
	default:
		c.txPending = true
		c.txValue = v
	}
	return 0
}

func (c *I2C) address(v uint32) {
	t, ok := c.targets[uint8(v>>1)]
	if !ok {
		c.active = nil
		c.raise(pac.I2C_IF_NACK)
		return
	}
	c.active = t
	c.reading = v&1 != 0
	if s, ok := t.(Starter); ok {
		s.Start(c.reading)
	}
	c.raise(pac.I2C_IF_ACK)
	if c.reading {
		c.receive()
	}
}

func (c *I2C) receive() {
	c.bus.poke(c.base+pac.I2C_RXDATA, uint32(c.active.Read()))
	c.raise(pac.I2C_IF_RXDATAV)
}

func (c *I2C) rxData(stored uint32) uint32 {
	flags := c.base + pac.I2C_IF
	c.bus.poke(flags, c.bus.peek(flags)&^pac.I2C_IF_RXDATAV)
	return stored
}

// Attach places target at the 7-bit address addr.
func (c *I2C) Attach(addr uint8, target Target) {
	c.bus.locked(func() { c.targets[addr] = target })
}

// Detach removes the target at addr.
func (c *I2C) Detach(addr uint8) {
	c.bus.locked(func() { delete(c.targets, addr) })
}

// Hang makes the controller stop reporting ACK, NACK and RXDATAV, as with a
// bus held low by a stuck target.
func (c *I2C) Hang(hang bool) {
	c.bus.locked(func() { c.silent = hang })
}

// Busy reports whether STATE.BUSY is set.
func (c *I2C) Busy() bool {
	return c.bus.Peek(c.base+pac.I2C_STATE)&pac.I2C_STATE_BUSY != 0
}

// MemTarget is a register-file target: the first byte written after an
// address selects a register, further bytes are stored there with
// auto-increment, and reads continue from the selected register.
type MemTarget struct {
	Registers [256]byte
	ptr       uint8
	selected  bool
	Writes    [][]byte
}

// Write implements Target.
func (m *MemTarget) Write(b byte) bool {
	if !m.selected {
		m.ptr = b
		m.selected = true
		m.Writes = append(m.Writes, []byte{b})
		return true
	}
	m.Registers[m.ptr] = b
	m.ptr++
	last := len(m.Writes) - 1
	m.Writes[last] = append(m.Writes[last], b)
	return true
}

// Read implements Target.
func (m *MemTarget) Read() byte {
	b := m.Registers[m.ptr]
	m.ptr++
	return b
}

// Start implements Starter. A new write transaction selects a register
// again; a read continues from the current one.
func (m *MemTarget) Start(read bool) { m.selected = false }
