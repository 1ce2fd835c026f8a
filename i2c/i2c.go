// Package i2c is the I2C controller driver. Bus implements
// tinygo.org/x/drivers.I2C, so sensor drivers from that module run on it
// unchanged.
package i2c

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

// Bus speeds
const (
	StandardMode = 100000
	FastMode     = 400000
)

// DefaultSpin bounds every wait for an ACK, a received byte or a stop
const DefaultSpin = 10000

// MinClock is the lowest peripheral clock the controller supports.
const MinClock = 2000000

var (
	ErrNack        = errors.New("i2c: no acknowledge")
	ErrEmpty       = errors.New("i2c: empty transaction")
	ErrAddress     = errors.New("i2c: address out of 7-bit range")
	ErrClockTooLow = errors.New("peripheral clock below 2 MHz")
	ErrFrequency   = errors.New("bus frequency not reachable")
	ErrFreed       = errors.New("i2c: driver freed")
)

// Config selects the bus frequency. Zero Frequency means StandardMode,
// zero Spin DefaultSpin.
type Config struct {
	Frequency uint32
	Spin      int
}

// Bus is an enabled I2C controller in master mode.
type Bus struct {
	id    pac.Peripheral
	tok   *device.I2C
	lease *cmu.Lease
	regs  mmio.Block
	free  func()
	scl   gpio.Alternate
	sda   gpio.Alternate
	spin  int
	hz    uint32
	freed bool
}

var _ drivers.I2C = (*Bus)(nil)

// timing returns the CLHR setting and CLKDIV for fscl at clock hz.
// f_scl = hz / ((nh+nl)*(div+1) + 8)
func timing(hz, fscl uint32) (clhr, div uint32, err error) {
	if hz < MinClock {
		return 0, 0, ErrClockTooLow
	}
	var n uint32
	switch {
	case fscl == 0 || fscl > FastMode:
		return 0, 0, ErrFrequency
	case fscl <= StandardMode:
		clhr, n = pac.I2C_CTRL_CLHR_STANDARD, 4+4
	default:
		clhr, n = pac.I2C_CTRL_CLHR_FAST, 11+6
	}
	if hz < 8*fscl+n*fscl {
		return 0, 0, ErrFrequency
	}
	div = (hz-8*fscl)/(n*fscl) - 1
	if div > pac.I2C_CLKDIV_DIV.Max() {
		return 0, 0, ErrFrequency
	}
	return clhr, div, nil
}

// New enables the I2C controller behind tok with scl and sda, which must
// already be routed to its SCL and SDA functions. Nothing is written unless
// every check passes.
func New(tok *device.I2C, lease *cmu.Lease, scl, sda gpio.Handle, cfg Config) (*Bus, error) {
	id := tok.ID()
	if err := cmu.Check(lease, id); err != nil {
		return nil, err
	}
	if cfg.Frequency == 0 {
		cfg.Frequency = StandardMode
	}
	if cfg.Spin <= 0 {
		cfg.Spin = DefaultSpin
	}
	clhr, div, err := timing(lease.Frequency(), cfg.Frequency)
	if err != nil {
		return nil, hal.ClockError(id.String(), err)
	}
	sclFn := gpio.Function{Peripheral: id, Signal: gpio.SCL}
	sdaFn := gpio.Function{Peripheral: id, Signal: gpio.SDA}
	if err := gpio.Check(scl, sclFn); err != nil {
		return nil, err
	}
	if err := gpio.Check(sda, sdaFn); err != nil {
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

	b := &Bus{id: id, tok: tok, lease: lease, regs: regs, spin: cfg.Spin}
	b.free = func() {
		freeClock()
		freeRegs()
	}
	b.scl, _ = gpio.Bind(scl, sclFn)
	b.sda, _ = gpio.Bind(sda, sdaFn)
	b.hz = lease.Frequency() / ((div+1)*clhrCycles(clhr) + 8)

	regs.Reg(pac.I2C_CLKDIV).Set(pac.I2C_CLKDIV_DIV.Value(div))
	regs.Reg(pac.I2C_CTRL).Set(pac.I2C_CTRL_EN | pac.I2C_CTRL_CLHR.Value(clhr))
	// BUSY is set out of reset until the bus is aborted
	if regs.Reg(pac.I2C_STATE).HasBits(pac.I2C_STATE_BUSY) {
		regs.Reg(pac.I2C_CMD).Set(pac.I2C_CMD_ABORT)
	}
	regs.Reg(pac.I2C_CMD).Set(pac.I2C_CMD_CLEARPC | pac.I2C_CMD_CLEARTX)
	regs.Reg(pac.I2C_ROUTELOC0).Set(
		pac.I2C_ROUTELOC0_SCLLOC.Value(uint32(b.scl.Location())) |
			pac.I2C_ROUTELOC0_SDALOC.Value(uint32(b.sda.Location())))
	regs.Reg(pac.I2C_ROUTEPEN).Set(pac.I2C_ROUTEPEN_SCLPEN | pac.I2C_ROUTEPEN_SDAPEN)

	hal.RecordEvent(hal.EvtDriverNew, uint8(id), b.hz, div)
	if hal.IsDebugEnabled() {
		hal.Debug(id.String() + ": SCL " + hal.Utoa(b.hz) + " Hz")
	}
	return b, nil
}

func clhrCycles(clhr uint32) uint32 {
	if clhr == pac.I2C_CTRL_CLHR_FAST {
		return 11 + 6
	}
	return 4 + 4
}

// Frequency returns the SCL frequency actually generated.
func (b *Bus) Frequency() uint32 { return b.hz }

// Peripheral returns the I2C instance.
func (b *Bus) Peripheral() pac.Peripheral { return b.id }

// Tx writes w to the target at 7-bit address addr, then, after a repeated
// start, reads len(r) bytes into r. Either may be empty but not both.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if b.freed {
		return ErrFreed
	}
	if len(w) == 0 && len(r) == 0 {
		return ErrEmpty
	}
	if addr > 0x7F {
		return ErrAddress
	}
	b.regs.Reg(pac.I2C_IFC).Set(pac.I2C_IF_MASK)

	if len(w) > 0 {
		if err := b.write(uint8(addr), w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		if err := b.read(uint8(addr), r); err != nil {
			return err
		}
	}
	return b.stop()
}

// WriteRegister writes data to register reg of the target at addr.
func (b *Bus) WriteRegister(addr uint8, reg uint8, data []byte) error {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, reg)
	return b.Tx(uint16(addr), append(buf, data...), nil)
}

// ReadRegister reads len(data) bytes starting at register reg.
func (b *Bus) ReadRegister(addr uint8, reg uint8, data []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, data)
}

func (b *Bus) write(addr uint8, w []byte) error {
	b.regs.Reg(pac.I2C_TXDATA).Set(uint32(addr) << 1)
	b.regs.Reg(pac.I2C_CMD).Set(pac.I2C_CMD_START)
	if err := b.waitAck("address"); err != nil {
		return err
	}
	for _, c := range w {
		b.regs.Reg(pac.I2C_TXDATA).Set(uint32(c))
		if err := b.waitAck("write"); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) read(addr uint8, r []byte) error {
	b.regs.Reg(pac.I2C_CMD).Set(pac.I2C_CMD_START)
	b.regs.Reg(pac.I2C_TXDATA).Set(uint32(addr)<<1 | 1)
	if err := b.waitAck("address"); err != nil {
		return err
	}
	last := len(r) - 1
	for i := range r {
		if err := b.wait(pac.I2C_IF_RXDATAV, "read"); err != nil {
			return err
		}
		r[i] = byte(b.regs.Reg(pac.I2C_RXDATA).Get())
		// ACK every byte but the last; the NACK ends the read
		if i < last {
			b.regs.Reg(pac.I2C_CMD).Set(pac.I2C_CMD_ACK)
		} else {
			b.regs.Reg(pac.I2C_CMD).Set(pac.I2C_CMD_NACK)
		}
	}
	return nil
}

func (b *Bus) stop() error {
	b.regs.Reg(pac.I2C_CMD).Set(pac.I2C_CMD_STOP)
	if err := b.wait(pac.I2C_IF_MSTOP, "stop"); err != nil {
		return err
	}
	b.regs.Reg(pac.I2C_IFC).Set(pac.I2C_IF_MSTOP)
	return nil
}

// waitAck waits for the target to acknowledge the last byte. A NACK sends
// a stop and fails the transaction.
func (b *Bus) waitAck(op string) error {
	flags := b.regs.Reg(pac.I2C_IF)
	var nack bool
	err := hal.Poll(b.spin, b.id.String(), op, func() error {
		v := flags.Get()
		switch {
		case v&pac.I2C_IF_NACK != 0:
			nack = true
			return nil
		case v&pac.I2C_IF_ACK != 0:
			return nil
		}
		return hal.ErrWouldBlock
	})
	if err != nil {
		b.abort()
		return err
	}
	if nack {
		b.regs.Reg(pac.I2C_IFC).Set(pac.I2C_IF_NACK)
		b.regs.Reg(pac.I2C_CMD).Set(pac.I2C_CMD_STOP)
		return ErrNack
	}
	b.regs.Reg(pac.I2C_IFC).Set(pac.I2C_IF_ACK)
	return nil
}

func (b *Bus) wait(flag uint32, op string) error {
	flags := b.regs.Reg(pac.I2C_IF)
	err := hal.Poll(b.spin, b.id.String(), op, func() error {
		if flags.HasBits(flag) {
			return nil
		}
		return hal.ErrWouldBlock
	})
	if err != nil {
		b.abort()
	}
	return err
}

// abort resets the controller after a transaction that timed out
func (b *Bus) abort() {
	b.regs.Reg(pac.I2C_CMD).Set(pac.I2C_CMD_ABORT)
	b.regs.Reg(pac.I2C_IFC).Set(pac.I2C_IF_MASK)
	hal.Debug(b.id.String() + ": bus aborted")
}

// Free disables the controller, gives back the token and the clock lease
// and returns both pins Disabled.
func (b *Bus) Free() (*device.I2C, gpio.Disabled, gpio.Disabled, error) {
	if b.freed {
		return nil, gpio.Disabled{}, gpio.Disabled{}, ErrFreed
	}
	b.regs.Reg(pac.I2C_ROUTEPEN).Set(0)
	b.regs.Reg(pac.I2C_CTRL).Set(0)
	b.freed = true
	b.free()
	scl, sclErr := b.scl.Disable()
	sda, sdaErr := b.sda.Disable()
	hal.RecordEvent(hal.EvtDriverFree, uint8(b.id), 0, 0)
	if sclErr != nil {
		return b.tok, scl, sda, sclErr
	}
	return b.tok, scl, sda, sdaErr
}
