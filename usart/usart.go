// Package usart is the asynchronous serial driver for the USART instances.
//
// Every data operation is non-blocking: when the hardware is not ready it
// returns hal.ErrWouldBlock and the caller retries, directly or through
// hal.Block and hal.Poll.
package usart

import (
	"errors"

	"tinygo.org/x/drivers"

	"efm32hal/cmu"
	"efm32hal/device"
	"efm32hal/gpio"
	"efm32hal/hal"
	"efm32hal/mmio"
	"efm32hal/pac"
)

// MaxBaudError is the largest accepted relative error of the generated baud
// rate, in percent.
const MaxBaudError = 2

var (
	ErrBaudUnreachable = errors.New("baud rate not reachable from the peripheral clock")
	ErrDataBits        = errors.New("unsupported data bits")
	ErrOversampling    = errors.New("oversampling must be 16, 8, 6 or 4")
	ErrFraming         = errors.New("framing error")
	ErrParity          = errors.New("parity error")
	ErrFreed           = errors.New("usart: driver freed")
)

// Parity selects the parity bit.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// StopBits selects the stop bit length. The zero value is one stop bit.
type StopBits uint8

const (
	StopOne StopBits = iota
	StopHalf
	StopOneAndHalf
	StopTwo
)

// Config is the frame format and bit rate. Zero DataBits means 8, zero
// Oversampling picks the highest oversampling that reaches Baud.
type Config struct {
	Baud         uint32
	DataBits     uint8
	Parity       Parity
	StopBits     StopBits
	Oversampling uint32
}

var oversampling = []struct {
	ratio uint32
	ctrl  uint32
}{
	{16, pac.USART_CTRL_OVS_X16},
	{8, pac.USART_CTRL_OVS_X8},
	{6, pac.USART_CTRL_OVS_X6},
	{4, pac.USART_CTRL_OVS_X4},
}

// divider is a computed baud generator setting
type divider struct {
	ratio uint32
	ctrl  uint32
	div   uint32
	baud  uint32
}

// clockDivider returns the CLKDIV setting for baud at peripheral clock hz.
// CLKDIV.DIV = 32*hz/(ovs*baud) - 32 in 1/32 steps.
func clockDivider(hz, baud, ratio uint32) (uint32, uint32, bool) {
	if baud == 0 {
		return 0, 0, false
	}
	den := uint64(ratio) * uint64(baud)
	scaled := (32*uint64(hz) + den/2) / den
	if scaled < 32 || scaled-32 > uint64(pac.USART_CLKDIV_DIV.Max()) {
		return 0, 0, false
	}
	actual := uint32(32 * uint64(hz) / (uint64(ratio) * scaled))
	return uint32(scaled - 32), actual, true
}

func withinError(actual, want uint32) bool {
	diff := int64(actual) - int64(want)
	if diff < 0 {
		diff = -diff
	}
	return diff*100 <= int64(want)*MaxBaudError
}

func computeDivider(hz uint32, cfg Config) (divider, error) {
	for _, o := range oversampling {
		if cfg.Oversampling != 0 && cfg.Oversampling != o.ratio {
			continue
		}
		div, actual, ok := clockDivider(hz, cfg.Baud, o.ratio)
		if ok && withinError(actual, cfg.Baud) {
			return divider{ratio: o.ratio, ctrl: o.ctrl, div: div, baud: actual}, nil
		}
		if cfg.Oversampling != 0 {
			break
		}
	}
	switch cfg.Oversampling {
	case 0, 16, 8, 6, 4:
		return divider{}, ErrBaudUnreachable
	}
	return divider{}, ErrOversampling
}

func frameBits(cfg Config) (uint32, error) {
	bits := cfg.DataBits
	if bits == 0 {
		bits = 8
	}
	if bits < 4 || bits > 8 {
		return 0, ErrDataBits
	}
	frame := pac.USART_FRAME_DATABITS.Value(uint32(bits) - 3)

	switch cfg.Parity {
	case ParityEven:
		frame |= pac.USART_FRAME_PARITY.Value(pac.USART_FRAME_PARITY_EVEN)
	case ParityOdd:
		frame |= pac.USART_FRAME_PARITY.Value(pac.USART_FRAME_PARITY_ODD)
	}

	stop := uint32(pac.USART_FRAME_STOPBITS_ONE)
	switch cfg.StopBits {
	case StopHalf:
		stop = pac.USART_FRAME_STOPBITS_HALF
	case StopOneAndHalf:
		stop = pac.USART_FRAME_STOPBITS_ONEANDAHALF
	case StopTwo:
		stop = pac.USART_FRAME_STOPBITS_TWO
	}
	return frame | pac.USART_FRAME_STOPBITS.Value(stop), nil
}

// Serial is an enabled USART with its TX and RX pins.
type Serial struct {
	id    pac.Peripheral
	tok   *device.USART
	lease *cmu.Lease
	regs  mmio.Block
	free  func()
	tx    gpio.Alternate
	rx    gpio.Alternate
	div   divider
	rxq   ring
	freed bool
	txh   *Tx
	rxh   *Rx
}

var _ drivers.UART = (*Serial)(nil)

// New configures the USART behind tok for asynchronous operation. lease
// must be the clock lease of the same instance; tx and rx must already be
// routed to its TX and RX functions. Nothing is written unless every check
// passes.
func New(tok *device.USART, lease *cmu.Lease, tx, rx gpio.Handle, cfg Config) (*Serial, error) {
	id := tok.ID()
	if err := cmu.Check(lease, id); err != nil {
		return nil, err
	}
	div, err := computeDivider(lease.Frequency(), cfg)
	if err != nil {
		return nil, hal.ClockError(id.String(), err)
	}
	frame, err := frameBits(cfg)
	if err != nil {
		return nil, hal.ClockError(id.String(), err)
	}
	txFn := gpio.Function{Peripheral: id, Signal: gpio.TX}
	rxFn := gpio.Function{Peripheral: id, Signal: gpio.RX}
	if err := gpio.Check(tx, txFn); err != nil {
		return nil, err
	}
	if err := gpio.Check(rx, rxFn); err != nil {
		return nil, err
	}
	regs, freeRegs, err := tok.Acquire()
	if err != nil {
		return nil, err
	}
	freeClock, err := cmu.Bind(lease, id)
	if err != nil {
		freeRegs()
		return nil, err
	}

	s := &Serial{id: id, tok: tok, lease: lease, regs: regs, div: div}
	s.free = func() {
		freeClock()
		freeRegs()
	}
	// Check passed above, so Bind cannot fail
	s.tx, _ = gpio.Bind(tx, txFn)
	s.rx, _ = gpio.Bind(rx, rxFn)

	regs.WriteField(pac.USART_CTRL_OVS, div.ctrl)
	regs.Reg(pac.USART_CLKDIV).Set(pac.USART_CLKDIV_DIV.Value(div.div))
	regs.Reg(pac.USART_FRAME).Set(frame)
	regs.Reg(pac.USART_ROUTELOC0).Set(
		pac.USART_ROUTELOC0_TXLOC.Value(uint32(s.tx.Location())) |
			pac.USART_ROUTELOC0_RXLOC.Value(uint32(s.rx.Location())))
	regs.Reg(pac.USART_ROUTEPEN).Set(pac.USART_ROUTEPEN_TXPEN | pac.USART_ROUTEPEN_RXPEN)
	regs.Reg(pac.USART_CMD).Set(pac.USART_CMD_CLEARRX | pac.USART_CMD_CLEARTX)
	regs.Reg(pac.USART_CMD).Set(pac.USART_CMD_TXEN | pac.USART_CMD_RXEN)

	hal.RecordEvent(hal.EvtDriverNew, uint8(id), div.baud, div.ratio)
	if hal.IsDebugEnabled() {
		hal.Debug(id.String() + ": " + hal.Utoa(div.baud) + " baud, ovs " + hal.Utoa(div.ratio))
	}
	return s, nil
}

// Baud returns the bit rate actually generated.
func (s *Serial) Baud() uint32 { return s.div.baud }

// Peripheral returns the USART instance.
func (s *Serial) Peripheral() pac.Peripheral { return s.id }

func (s *Serial) status() mmio.Register { return s.regs.Reg(pac.USART_STATUS) }

// ReadByte returns the next received byte. Bytes drained by HandleInterrupt
// come first. A byte received with a framing or parity error is consumed
// and reported as ErrFraming or ErrParity.
func (s *Serial) ReadByte() (byte, error) {
	if s.freed {
		return 0, ErrFreed
	}
	if b, ok := s.rxq.get(); ok {
		return b, nil
	}
	if !s.status().HasBits(pac.USART_STATUS_RXDATAV) {
		return 0, hal.ErrWouldBlock
	}
	v := s.regs.Reg(pac.USART_RXDATAX).Get()
	switch {
	case v&pac.USART_RXDATAX_FERR != 0:
		return byte(v), ErrFraming
	case v&pac.USART_RXDATAX_PERR != 0:
		return byte(v), ErrParity
	}
	return byte(v), nil
}

// WriteByte queues b for transmission once the transmit buffer has room.
func (s *Serial) WriteByte(b byte) error {
	if s.freed {
		return ErrFreed
	}
	if !s.status().HasBits(pac.USART_STATUS_TXBL) {
		return hal.ErrWouldBlock
	}
	s.regs.Reg(pac.USART_TXDATA).Set(uint32(b))
	return nil
}

// Flush reports hal.ErrWouldBlock until the last frame has left the shift
// register.
func (s *Serial) Flush() error {
	if s.freed {
		return ErrFreed
	}
	if !s.status().HasBits(pac.USART_STATUS_TXIDLE) {
		return hal.ErrWouldBlock
	}
	return nil
}

// Read copies the bytes available now into p. It returns hal.ErrWouldBlock
// if none are.
func (s *Serial) Read(p []byte) (int, error) {
	for i := range p {
		b, err := s.ReadByte()
		if err != nil {
			if i > 0 && hal.IsNotReady(err) {
				return i, nil
			}
			return i, err
		}
		p[i] = b
	}
	return len(p), nil
}

// Write queues as much of p as the transmit buffer accepts. A short write
// returns hal.ErrWouldBlock with the count written.
func (s *Serial) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := s.WriteByte(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Buffered returns the number of received bytes ready to be read.
func (s *Serial) Buffered() int {
	if s.freed {
		return 0
	}
	n := s.rxq.Len()
	if s.status().HasBits(pac.USART_STATUS_RXDATAV) {
		n++
	}
	return n
}

// HandleInterrupt drains the receiver into the RX ring. Call it from the
// USART RX interrupt handler. Frames with errors are dropped; bytes that do
// not fit are counted as overruns.
func (s *Serial) HandleInterrupt() {
	if s.freed {
		return
	}
	for s.status().HasBits(pac.USART_STATUS_RXDATAV) {
		v := s.regs.Reg(pac.USART_RXDATAX).Get()
		if v&(pac.USART_RXDATAX_FERR|pac.USART_RXDATAX_PERR) != 0 {
			continue
		}
		if !s.rxq.put(byte(v)) {
			hal.RecordEvent(hal.EvtRxOverrun, uint8(s.id), s.rxq.overruns.Load(), 0)
		}
	}
	s.regs.Reg(pac.USART_IFC).Set(pac.USART_IF_RXDATAV)
}

// EnableInterrupt enables or disables the RX data valid interrupt.
func (s *Serial) EnableInterrupt(on bool) {
	ien := s.regs.Reg(pac.USART_IEN)
	if on {
		ien.SetBits(pac.USART_IF_RXDATAV)
	} else {
		ien.ClearBits(pac.USART_IF_RXDATAV)
	}
}

// Overruns returns the number of bytes lost because the RX ring was full.
func (s *Serial) Overruns() uint32 { return s.rxq.overruns.Load() }

// Split returns the transmit and receive halves so they can be handed to
// different owners. Both keep using s; Free s only after both are retired.
func (s *Serial) Split() (*Tx, *Rx) {
	if s.txh == nil {
		s.txh = &Tx{s: s}
		s.rxh = &Rx{s: s}
	}
	return s.txh, s.rxh
}

// Free disables the USART, gives back the token and the clock lease and
// returns both pins Disabled.
func (s *Serial) Free() (*device.USART, gpio.Disabled, gpio.Disabled, error) {
	if s.freed {
		return nil, gpio.Disabled{}, gpio.Disabled{}, ErrFreed
	}
	s.regs.Reg(pac.USART_IEN).Set(0)
	s.regs.Reg(pac.USART_CMD).Set(pac.USART_CMD_TXDIS | pac.USART_CMD_RXDIS)
	s.regs.Reg(pac.USART_ROUTEPEN).Set(0)
	s.rxq.reset()
	s.freed = true
	s.free()
	tx, txErr := s.tx.Disable()
	rx, rxErr := s.rx.Disable()
	hal.RecordEvent(hal.EvtDriverFree, uint8(s.id), 0, 0)
	if txErr != nil {
		return s.tok, tx, rx, txErr
	}
	return s.tok, tx, rx, rxErr
}

// Tx is the transmit half of a Serial.
type Tx struct{ s *Serial }

func (t *Tx) WriteByte(b byte) error      { return t.s.WriteByte(b) }
func (t *Tx) Write(p []byte) (int, error) { return t.s.Write(p) }
func (t *Tx) Flush() error                { return t.s.Flush() }

// Rx is the receive half of a Serial.
type Rx struct{ s *Serial }

func (r *Rx) ReadByte() (byte, error)    { return r.s.ReadByte() }
func (r *Rx) Read(p []byte) (int, error) { return r.s.Read(p) }
func (r *Rx) Buffered() int              { return r.s.Buffered() }
func (r *Rx) HandleInterrupt()           { r.s.HandleInterrupt() }
