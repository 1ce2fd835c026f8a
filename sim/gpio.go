package sim

import "efm32hal/pac"

// GPIO models DOUTTGL and computes DIN from pin mode, DOUT and externally
// driven levels.
type GPIO struct {
	bus      *Bus
	base     uintptr
	driven   [pac.NumPorts]uint16 // pins driven from outside
	external [pac.NumPorts]uint16 // level of driven pins
}

func newGPIO(bus *Bus) *GPIO {
	g := &GPIO{bus: bus, base: pac.GPIO.Base()}
	for port := uint8(0); port < pac.NumPorts; port++ {
		port := port
		off := g.base + pac.GPIOPort(port)
		bus.OnWrite(off+pac.GPIO_P_DOUTTGL, func(_, v uint32) uint32 {
			dout := off + pac.GPIO_P_DOUT
			bus.poke(dout, bus.peek(dout)^(v&0xFFFF))
			return 0
		})
		bus.OnRead(off+pac.GPIO_P_DIN, func(uint32) uint32 {
			return uint32(g.din(port))
		})
	}
	return g
}

func (g *GPIO) mode(port, pin uint8) uint32 {
	off, pos := pac.GPIOModeReg(port, pin)
	return (g.bus.peek(g.base+off) >> pos) & pac.GPIO_MODE_MASK
}

func (g *GPIO) din(port uint8) uint16 {
	dout := uint16(g.bus.peek(g.base + pac.GPIOPort(port) + pac.GPIO_P_DOUT))
	var in uint16
	for pin := uint8(0); pin < 16; pin++ {
		bit := uint16(1) << pin
		driven := g.driven[port]&bit != 0
		ext := g.external[port]&bit != 0
		out := dout&bit != 0

		var level bool
		switch g.mode(port, pin) {
		case pac.GPIO_MODE_DISABLED:
			level = false
		case pac.GPIO_MODE_INPUT:
			level = driven && ext
		case pac.GPIO_MODE_INPUTPULL, pac.GPIO_MODE_INPUTPULLFILTER:
			// DOUT selects pull-up or pull-down
			level = out
			if driven {
				level = ext
			}
		case pac.GPIO_MODE_PUSHPULL, pac.GPIO_MODE_PUSHPULLALT:
			level = out
		case pac.GPIO_MODE_WIREDOR, pac.GPIO_MODE_WIREDORPULLDOWN:
			level = out || (driven && ext)
		default:
			// Wired-AND: released line reads high unless pulled low from outside
			level = out && (!driven || ext)
		}
		if level {
			in |= bit
		}
	}
	return in
}

// SetLevel drives pin of port from outside the chip.
func (g *GPIO) SetLevel(port, pin uint8, high bool) {
	g.bus.locked(func() {
		g.driven[port] |= 1 << pin
		if high {
			g.external[port] |= 1 << pin
		} else {
			g.external[port] &^= 1 << pin
		}
	})
}

// Release stops driving pin of port from outside.
func (g *GPIO) Release(port, pin uint8) {
	g.bus.locked(func() {
		g.driven[port] &^= 1 << pin
	})
}

// Mode returns the 4-bit mode of pin.
func (g *GPIO) Mode(port, pin uint8) uint32 {
	var m uint32
	g.bus.locked(func() { m = g.mode(port, pin) })
	return m
}

// Out reports the DOUT bit of pin.
func (g *GPIO) Out(port, pin uint8) bool {
	return g.bus.Peek(g.base+pac.GPIOPort(port)+pac.GPIO_P_DOUT)&(1<<pin) != 0
}
