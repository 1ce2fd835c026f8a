// Package timer drives the TIMER and WTIMER counters as periodic or
// one-shot timebases.
package timer

import (
	"errors"
	"math/bits"
	"time"

	"efm32hal/cmu"
	"efm32hal/device"
	"efm32hal/hal"
	"efm32hal/mmio"
	"efm32hal/pac"
)

var (
	ErrPrescale  = errors.New("prescaler must be a power of two up to 1024")
	ErrTopRange  = errors.New("top value exceeds counter width")
	ErrPeriod    = errors.New("period not representable")
	ErrFreed     = errors.New("timer: driver freed")
	ErrCountMode = errors.New("unsupported counting mode")
)

// MaxPrescale is the largest clock prescaler.
const MaxPrescale = 1024

// Mode is the counting direction.
type Mode uint8

const (
	Up Mode = iota
	Down
	UpDown
)

func (m Mode) ctrl() (uint32, bool) {
	switch m {
	case Up:
		return pac.TIMER_CTRL_MODE_UP, true
	case Down:
		return pac.TIMER_CTRL_MODE_DOWN, true
	case UpDown:
		return pac.TIMER_CTRL_MODE_UPDOWN, true
	}
	return 0, false
}

// Config sets up the counter. Zero Prescale means 1 and zero Top the full
// counter width. OneShot stops the counter at the first overflow or
// underflow.
type Config struct {
	Prescale uint32
	Top      uint32
	Mode     Mode
	OneShot  bool
}

// Timer is a configured TIMER or WTIMER instance.
type Timer struct {
	id        pac.Peripheral
	tok       *device.Timer
	lease     *cmu.Lease
	regs      mmio.Block
	freeRegs  func()
	freeClock func()
	mode      Mode
	prescale  uint32
	maxTop    uint32
	freed     bool
}

func prescaleBits(p uint32) (uint32, bool) {
	if p == 0 || p > MaxPrescale || p&(p-1) != 0 {
		return 0, false
	}
	return uint32(bits.TrailingZeros32(p)), true
}

// New configures the timer behind tok. The counter is left stopped at zero.
func New(tok *device.Timer, lease *cmu.Lease, cfg Config) (*Timer, error) {
	id := tok.ID()
	if err := cmu.Check(lease, id); err != nil {
		return nil, err
	}
	if cfg.Prescale == 0 {
		cfg.Prescale = 1
	}
	presc, ok := prescaleBits(cfg.Prescale)
	if !ok {
		return nil, hal.ClockError(id.String(), ErrPrescale)
	}
	mode, ok := cfg.Mode.ctrl()
	if !ok {
		return nil, hal.ClockError(id.String(), ErrCountMode)
	}
	maxTop := uint32(0xFFFF)
	if id.IsWideTimer() {
		maxTop = 0xFFFFFFFF
	}
	if cfg.Top == 0 {
		cfg.Top = maxTop
	}
	if cfg.Top > maxTop {
		return nil, hal.ClockError(id.String(), ErrTopRange)
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

	ctrl := pac.TIMER_CTRL_MODE.Value(mode) | pac.TIMER_CTRL_PRESC.Value(presc)
	if cfg.OneShot {
		ctrl |= pac.TIMER_CTRL_OSMEN
	}
	regs.Reg(pac.TIMER_CMD).Set(pac.TIMER_CMD_STOP)
	regs.Reg(pac.TIMER_CTRL).Set(ctrl)
	regs.Reg(pac.TIMER_TOP).Set(cfg.Top)
	regs.Reg(pac.TIMER_CNT).Set(0)
	regs.Reg(pac.TIMER_IFC).Set(pac.TIMER_IF_OF | pac.TIMER_IF_UF)

	hal.RecordEvent(hal.EvtDriverNew, uint8(id), cfg.Prescale, cfg.Top)
	return &Timer{
		id:        id,
		tok:       tok,
		lease:     lease,
		regs:      regs,
		freeRegs:  freeRegs,
		freeClock: freeClock,
		mode:      cfg.Mode,
		prescale:  cfg.Prescale,
		maxTop:    maxTop,
	}, nil
}

// Start starts counting.
func (t *Timer) Start() error {
	if t.freed {
		return ErrFreed
	}
	t.regs.Reg(pac.TIMER_CMD).Set(pac.TIMER_CMD_START)
	return nil
}

// Stop stops counting. The count is kept.
func (t *Timer) Stop() error {
	if t.freed {
		return ErrFreed
	}
	t.regs.Reg(pac.TIMER_CMD).Set(pac.TIMER_CMD_STOP)
	return nil
}

// Running reports whether the counter is running.
func (t *Timer) Running() bool {
	return !t.freed && t.regs.Reg(pac.TIMER_STATUS).HasBits(pac.TIMER_STATUS_RUNNING)
}

// Count returns the counter value.
func (t *Timer) Count() uint32 {
	if t.freed {
		return 0
	}
	return t.regs.Reg(pac.TIMER_CNT).Get()
}

// SetCount loads the counter.
func (t *Timer) SetCount(n uint32) error {
	if t.freed {
		return ErrFreed
	}
	if n > t.maxTop {
		return hal.ClockError(t.id.String(), ErrTopRange)
	}
	t.regs.Reg(pac.TIMER_CNT).Set(n)
	return nil
}

// Top returns the wrap value.
func (t *Timer) Top() uint32 { return t.regs.Reg(pac.TIMER_TOP).Get() }

// SetTop sets the value the counter wraps at.
func (t *Timer) SetTop(top uint32) error {
	if t.freed {
		return ErrFreed
	}
	if top > t.maxTop {
		return hal.ClockError(t.id.String(), ErrTopRange)
	}
	t.regs.Reg(pac.TIMER_TOP).Set(top)
	return nil
}

// Prescale returns the clock prescaler in use.
func (t *Timer) Prescale() uint32 { return t.prescale }

// Frequency returns the counting frequency in Hz.
func (t *Timer) Frequency() uint32 {
	return t.lease.Frequency() / t.prescale
}

// SetPeriod programs the prescaler and TOP so that an overflow (or
// underflow) occurs every d. The smallest prescaler that fits is used.
func (t *Timer) SetPeriod(d time.Duration) error {
	if t.freed {
		return ErrFreed
	}
	presc, top, err := t.period(t.lease.Frequency(), d)
	if err != nil {
		return hal.ClockError(t.id.String(), err)
	}
	pbits, _ := prescaleBits(presc)
	t.regs.WriteField(pac.TIMER_CTRL_PRESC, pbits)
	t.regs.Reg(pac.TIMER_TOP).Set(top)
	t.prescale = presc
	return nil
}

func (t *Timer) period(hz uint32, d time.Duration) (presc, top uint32, err error) {
	if d <= 0 {
		return 0, 0, ErrPeriod
	}
	for presc = 1; presc <= MaxPrescale; presc <<= 1 {
		den := uint64(presc) * uint64(time.Second)
		hi, lo := bits.Mul64(uint64(hz), uint64(d))
		if hi >= den {
			continue
		}
		ticks, _ := bits.Div64(hi, lo, den)
		if t.mode == UpDown {
			// up then down: one period is 2*TOP ticks
			if ticks < 2 {
				return 0, 0, ErrPeriod
			}
			if ticks/2 <= uint64(t.maxTop) {
				return presc, uint32(ticks / 2), nil
			}
			continue
		}
		if ticks == 0 {
			return 0, 0, ErrPeriod
		}
		if ticks-1 <= uint64(t.maxTop) {
			return presc, uint32(ticks - 1), nil
		}
	}
	return 0, 0, ErrPeriod
}

// Wait reports hal.ErrWouldBlock until the counter has overflowed or
// underflowed, then clears the flag.
func (t *Timer) Wait() error {
	if t.freed {
		return ErrFreed
	}
	flags := t.regs.Reg(pac.TIMER_IF).Get() & (pac.TIMER_IF_OF | pac.TIMER_IF_UF)
	if flags == 0 {
		return hal.ErrWouldBlock
	}
	t.regs.Reg(pac.TIMER_IFC).Set(flags)
	return nil
}

// Free stops the timer and gives back the token and the clock lease.
func (t *Timer) Free() (*device.Timer, error) {
	if t.freed {
		return nil, ErrFreed
	}
	t.regs.Reg(pac.TIMER_CMD).Set(pac.TIMER_CMD_STOP)
	t.regs.Reg(pac.TIMER_CTRL).Set(0)
	t.freed = true
	t.freeClock()
	t.freeRegs()
	hal.RecordEvent(hal.EvtDriverFree, uint8(t.id), 0, 0)
	return t.tok, nil
}
