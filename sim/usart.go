package sim

import "efm32hal/pac"

type rxFrame struct {
	data       uint16
	ferr, perr bool
}

// USART models the transmitter and receiver of one USART instance.
type USART struct {
	bus    *Bus
	base   uintptr
	rx     []rxFrame
	tx     []byte
	txBusy bool
}

func newUSART(bus *Bus, p pac.Peripheral) *USART {
	u := &USART{bus: bus, base: p.Base()}
	bus.OnWrite(u.base+pac.USART_CMD, u.cmd)
	bus.OnWrite(u.base+pac.USART_TXDATA, u.txData)
	bus.OnRead(u.base+pac.USART_STATUS, u.status)
	bus.OnRead(u.base+pac.USART_RXDATAX, func(uint32) uint32 { return u.pop(true) })
	bus.OnRead(u.base+pac.USART_RXDATA, func(uint32) uint32 { return u.pop(false) })
	bus.OnWrite(u.base+pac.USART_IFC, func(_, v uint32) uint32 {
		flags := u.base + pac.USART_IF
		bus.poke(flags, bus.peek(flags)&^v)
		return 0
	})
	return u
}

func (u *USART) cmd(_, v uint32) uint32 {
	status := u.base + pac.USART_STATUS
	s := u.bus.peek(status)
	if v&pac.USART_CMD_RXEN != 0 {
		s |= pac.USART_STATUS_RXENS
	}
	if v&pac.USART_CMD_RXDIS != 0 {
		s &^= pac.USART_STATUS_RXENS
	}
	if v&pac.USART_CMD_TXEN != 0 {
		s |= pac.USART_STATUS_TXENS
	}
	if v&pac.USART_CMD_TXDIS != 0 {
		s &^= pac.USART_STATUS_TXENS
	}
	if v&pac.USART_CMD_CLEARRX != 0 {
		u.rx = u.rx[:0]
	}
	u.bus.poke(status, s)
	return 0
}

func (u *USART) txData(_, v uint32) uint32 {
	if u.bus.peek(u.base+pac.USART_STATUS)&pac.USART_STATUS_TXENS != 0 && !u.txBusy {
		u.tx = append(u.tx, byte(v))
	}
	return 0
}

func (u *USART) status(stored uint32) uint32 {
	s := stored
	if !u.txBusy {
		s |= pac.USART_STATUS_TXBL | pac.USART_STATUS_TXIDLE | pac.USART_STATUS_TXC
	}
	if len(u.rx) > 0 && stored&pac.USART_STATUS_RXENS != 0 {
		s |= pac.USART_STATUS_RXDATAV
	}
	return s
}

func (u *USART) pop(extended bool) uint32 {
	if len(u.rx) == 0 || u.bus.peek(u.base+pac.USART_STATUS)&pac.USART_STATUS_RXENS == 0 {
		return 0
	}
	f := u.rx[0]
	u.rx = u.rx[1:]
	v := uint32(f.data)
	if extended {
		if f.ferr {
			v |= pac.USART_RXDATAX_FERR
		}
		if f.perr {
			v |= pac.USART_RXDATAX_PERR
		}
	}
	return v
}

// Inject queues bytes as if they arrived on the RX line.
func (u *USART) Inject(data ...byte) {
	u.bus.locked(func() {
		for _, b := range data {
			u.rx = append(u.rx, rxFrame{data: uint16(b)})
		}
		u.raiseRx()
	})
}

// InjectError queues a byte received with a framing and/or parity error.
func (u *USART) InjectError(b byte, framing, parity bool) {
	u.bus.locked(func() {
		u.rx = append(u.rx, rxFrame{data: uint16(b), ferr: framing, perr: parity})
		u.raiseRx()
	})
}

func (u *USART) raiseRx() {
	flags := u.base + pac.USART_IF
	u.bus.poke(flags, u.bus.peek(flags)|pac.USART_IF_RXDATAV)
}

// Transmitted returns the bytes sent on the TX line so far.
func (u *USART) Transmitted() []byte {
	var out []byte
	u.bus.locked(func() { out = append(out, u.tx...) })
	return out
}

// ClearTransmitted forgets the captured TX bytes.
func (u *USART) ClearTransmitted() {
	u.bus.locked(func() { u.tx = u.tx[:0] })
}

// SetTxBusy holds the transmit buffer full, so TXBL and TXIDLE stay clear.
func (u *USART) SetTxBusy(busy bool) {
	u.bus.locked(func() { u.txBusy = busy })
}

// Pending returns the number of received bytes not yet read.
func (u *USART) Pending() int {
	var n int
	u.bus.locked(func() { n = len(u.rx) })
	return n
}
