package usart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"efm32hal/cmu"
	"efm32hal/device"
	"efm32hal/gpio"
	"efm32hal/hal"
	"efm32hal/pac"
	"efm32hal/sim"
)

type fixture struct {
	chip  *sim.Chip
	clock *cmu.Manager
	per   *device.Peripherals
	pins  *gpio.Parts
}

// setup brings the chip to HFXO 38.4 MHz with HFPERCLK divided by 4
func setup(t *testing.T) *fixture {
	t.Helper()
	chip := sim.New()
	dev, err := device.Take(chip)
	require.NoError(t, err)
	per, err := dev.Split()
	require.NoError(t, err)
	m, err := cmu.New(per.CMU)
	require.NoError(t, err)
	require.NoError(t, m.EnableOscillator(cmu.HFXO, 38400000))
	require.NoError(t, m.Enable(cmu.HFCLK, cmu.Config{Source: cmu.HFXO}))
	require.NoError(t, m.Enable(cmu.HFPERCLK, cmu.Config{Source: cmu.HFCLK, Divider: 4}))

	gl, err := m.EnableClock(pac.GPIO)
	require.NoError(t, err)
	pins, err := gpio.Split(per.GPIO, gl)
	require.NoError(t, err)
	return &fixture{chip: chip, clock: m, per: per, pins: pins}
}

func (f *fixture) routed(t *testing.T, id pac.Peripheral, tx, rx gpio.Disabled) (gpio.Alternate, gpio.Alternate) {
	t.Helper()
	txPin, err := tx.Alternate(gpio.Function{Peripheral: id, Signal: gpio.TX})
	require.NoError(t, err)
	rxPin, err := rx.Alternate(gpio.Function{Peripheral: id, Signal: gpio.RX})
	require.NoError(t, err)
	return txPin, rxPin
}

func (f *fixture) serial(t *testing.T, cfg Config) *Serial {
	t.Helper()
	tx, rx := f.routed(t, pac.USART0, f.pins.PA0, f.pins.PA1)
	lease, err := f.clock.EnableClock(pac.USART0)
	require.NoError(t, err)
	s, err := New(f.per.USART0, lease, tx, rx, cfg)
	require.NoError(t, err)
	return s
}

func TestDivider(t *testing.T) {
	tests := []struct {
		name      string
		hz        uint32
		cfg       Config
		wantRatio uint32
		wantDiv   uint32
		wantErr   error
	}{
		{"115200 at 9.6MHz", 9600000, Config{Baud: 115200}, 16, 135, nil},
		{"9600 at 9.6MHz", 9600000, Config{Baud: 9600}, 16, 1968, nil},
		{"1M at 38.4MHz", 38400000, Config{Baud: 1000000}, 16, 45, nil},
		{"forced x4", 9600000, Config{Baud: 115200, Oversampling: 4}, 4, 635, nil},
		{"1.2M needs x8", 9600000, Config{Baud: 1200000}, 8, 0, nil},
		{"4M unreachable", 9600000, Config{Baud: 4000000}, 0, 0, ErrBaudUnreachable},
		{"zero baud", 9600000, Config{}, 0, 0, ErrBaudUnreachable},
		{"bad oversampling", 9600000, Config{Baud: 9600, Oversampling: 5}, 0, 0, ErrOversampling},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := computeDivider(tt.hz, tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRatio, d.ratio)
			assert.Equal(t, tt.wantDiv, d.div)
			assert.True(t, withinError(d.baud, tt.cfg.Baud), "baud %d", d.baud)
		})
	}
}

func TestNewWritesRegisters(t *testing.T) {
	f := setup(t)
	s := f.serial(t, Config{Baud: 115200})

	assert.Equal(t, uint32(114970), s.Baud())
	assert.Equal(t, uint32(135<<3), f.chip.Reg(pac.USART0, pac.USART_CLKDIV))
	assert.Zero(t, f.chip.Reg(pac.USART0, pac.USART_CTRL)>>5&3, "OVS must be x16")
	assert.Equal(t, uint32(5|1<<12), f.chip.Reg(pac.USART0, pac.USART_FRAME))
	assert.Zero(t, f.chip.Reg(pac.USART0, pac.USART_ROUTELOC0))
	assert.Equal(t, uint32(pac.USART_ROUTEPEN_TXPEN|pac.USART_ROUTEPEN_RXPEN),
		f.chip.Reg(pac.USART0, pac.USART_ROUTEPEN))
	status := f.chip.Reg(pac.USART0, pac.USART_STATUS)
	assert.NotZero(t, status&pac.USART_STATUS_TXENS)
	assert.NotZero(t, status&pac.USART_STATUS_RXENS)
	assert.True(t, f.per.USART0.InUse())
}

func TestRouteLocations(t *testing.T) {
	f := setup(t)
	tx, rx := f.routed(t, pac.USART0, f.pins.PF4, f.pins.PF5)
	lease, err := f.clock.EnableClock(pac.USART0)
	require.NoError(t, err)
	_, err = New(f.per.USART0, lease, tx, rx, Config{Baud: 9600, Parity: ParityEven, StopBits: StopTwo})
	require.NoError(t, err)

	assert.Equal(t, uint32(28<<8|28), f.chip.Reg(pac.USART0, pac.USART_ROUTELOC0))
	assert.Equal(t, uint32(5|2<<8|3<<12), f.chip.Reg(pac.USART0, pac.USART_FRAME))
}

func TestUnreachableBaud(t *testing.T) {
	f := setup(t)
	tx, rx := f.routed(t, pac.USART0, f.pins.PA0, f.pins.PA1)
	lease, err := f.clock.EnableClock(pac.USART0)
	require.NoError(t, err)
	f.chip.ResetLog()

	_, err = New(f.per.USART0, lease, tx, rx, Config{Baud: 4000000})
	require.Error(t, err)
	assert.ErrorIs(t, err, hal.ErrClockConfig)
	assert.ErrorIs(t, err, ErrBaudUnreachable)
	assert.Zero(t, f.chip.WriteCount())
	assert.False(t, f.per.USART0.InUse())

	// the pins were not consumed by the failed attempt
	_, err = New(f.per.USART0, lease, tx, rx, Config{Baud: 115200})
	assert.NoError(t, err)
}

func TestPinNotRouted(t *testing.T) {
	f := setup(t)
	tx, err := f.pins.PA0.Input(gpio.PullNone, false)
	require.NoError(t, err)
	rx, err := f.pins.PA1.Alternate(gpio.Function{Peripheral: pac.USART0, Signal: gpio.RX})
	require.NoError(t, err)
	lease, err := f.clock.EnableClock(pac.USART0)
	require.NoError(t, err)
	f.chip.ResetLog()

	_, err = New(f.per.USART0, lease, tx, rx, Config{Baud: 115200})
	assert.ErrorIs(t, err, hal.ErrPinConfig)
	assert.ErrorIs(t, err, gpio.ErrWrongPinMode)
	assert.Zero(t, f.chip.WriteCount())
	assert.False(t, f.per.USART0.InUse())
}

func TestDisabledPinRejected(t *testing.T) {
	f := setup(t)
	tx, rx := f.routed(t, pac.USART0, f.pins.PA0, f.pins.PA1)
	if _, err := tx.Disable(); err != nil {
		t.Fatal(err)
	}
	lease, err := f.clock.EnableClock(pac.USART0)
	require.NoError(t, err)

	_, err = New(f.per.USART0, lease, tx, rx, Config{Baud: 115200})
	assert.ErrorIs(t, err, hal.ErrPinConfig)
	assert.ErrorIs(t, err, gpio.ErrPinConsumed)
}

func TestWrongLease(t *testing.T) {
	f := setup(t)
	tx, rx := f.routed(t, pac.USART0, f.pins.PA0, f.pins.PA1)
	lease, err := f.clock.EnableClock(pac.USART1)
	require.NoError(t, err)

	_, err = New(f.per.USART0, lease, tx, rx, Config{Baud: 115200})
	assert.ErrorIs(t, err, hal.ErrClockConfig)
	assert.ErrorIs(t, err, cmu.ErrLeaseMismatch)

	lease.Release()
	_, err = New(f.per.USART1, lease, tx, rx, Config{Baud: 115200})
	assert.ErrorIs(t, err, cmu.ErrLeaseReleased)
}

func TestNonBlockingRead(t *testing.T) {
	f := setup(t)
	s := f.serial(t, Config{Baud: 115200})
	model := f.chip.USARTFor(pac.USART0)

	_, err := s.ReadByte()
	assert.ErrorIs(t, err, hal.ErrWouldBlock)
	assert.Zero(t, s.Buffered())

	model.Inject('x')
	assert.Equal(t, 1, s.Buffered())
	b, err := s.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('x'), b)

	_, err = s.ReadByte()
	assert.ErrorIs(t, err, hal.ErrWouldBlock, "byte must be returned exactly once")

	buf := make([]byte, 8)
	n, err := s.Read(buf)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, hal.ErrWouldBlock)

	model.Inject('a', 'b', 'c')
	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf[:n]))
}

func TestReceiveErrors(t *testing.T) {
	f := setup(t)
	s := f.serial(t, Config{Baud: 115200, Parity: ParityOdd})
	model := f.chip.USARTFor(pac.USART0)

	model.InjectError(0x55, true, false)
	model.InjectError(0x66, false, true)
	model.Inject(0x77)

	_, err := s.ReadByte()
	assert.ErrorIs(t, err, ErrFraming)
	_, err = s.ReadByte()
	assert.ErrorIs(t, err, ErrParity)
	b, err := s.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x77), b)
}

func TestWrite(t *testing.T) {
	f := setup(t)
	s := f.serial(t, Config{Baud: 115200})
	model := f.chip.USARTFor(pac.USART0)

	n, err := s.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.NoError(t, s.Flush())
	assert.Equal(t, "hello", string(model.Transmitted()))

	model.SetTxBusy(true)
	assert.ErrorIs(t, s.WriteByte('!'), hal.ErrWouldBlock)
	assert.ErrorIs(t, s.Flush(), hal.ErrWouldBlock)
	n, err = s.Write([]byte("more"))
	assert.Zero(t, n)
	assert.True(t, hal.IsNotReady(err))

	err = hal.Poll(10, "USART0", "write", func() error { return s.WriteByte('!') })
	var busy *hal.PeripheralBusyError
	assert.True(t, errors.As(err, &busy))

	model.SetTxBusy(false)
	require.NoError(t, hal.Block(func() error { return s.WriteByte('!') }))
	assert.Equal(t, "hello!", string(model.Transmitted()))
}

func TestInterruptRing(t *testing.T) {
	f := setup(t)
	s := f.serial(t, Config{Baud: 115200})
	model := f.chip.USARTFor(pac.USART0)
	hal.ClearEvents()

	s.EnableInterrupt(true)
	assert.NotZero(t, f.chip.Reg(pac.USART0, pac.USART_IEN)&pac.USART_IF_RXDATAV)

	model.Inject('o', 'k')
	model.InjectError('?', true, false)
	s.HandleInterrupt()
	assert.Zero(t, model.Pending())
	assert.Zero(t, f.chip.Reg(pac.USART0, pac.USART_IF)&pac.USART_IF_RXDATAV)
	assert.Equal(t, 2, s.Buffered())

	_, rx := s.Split()
	buf := make([]byte, 4)
	n, err := rx.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(buf[:n]))

	overfill := make([]byte, RingSize+3)
	model.Inject(overfill...)
	s.HandleInterrupt()
	assert.Equal(t, RingSize, s.Buffered())
	assert.Equal(t, uint32(3), s.Overruns())

	var overruns int
	for _, e := range hal.Events() {
		if e.Kind == hal.EvtRxOverrun {
			overruns++
		}
	}
	assert.Equal(t, 3, overruns)
}

func TestSplitHalves(t *testing.T) {
	f := setup(t)
	s := f.serial(t, Config{Baud: 115200})
	model := f.chip.USARTFor(pac.USART0)

	tx, rx := s.Split()
	tx2, rx2 := s.Split()
	assert.Same(t, tx, tx2)
	assert.Same(t, rx, rx2)

	require.NoError(t, tx.WriteByte('A'))
	assert.Equal(t, []byte("A"), model.Transmitted())
	model.Inject('B')
	b, err := rx.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('B'), b)
}

func TestFree(t *testing.T) {
	f := setup(t)
	s := f.serial(t, Config{Baud: 115200})

	tok, tx, rx, err := s.Free()
	require.NoError(t, err)
	assert.Same(t, f.per.USART0, tok)
	assert.False(t, tok.InUse())
	assert.False(t, f.chip.GateOpen(pac.USART0))
	assert.Zero(t, f.chip.Reg(pac.USART0, pac.USART_ROUTEPEN))

	assert.ErrorIs(t, s.WriteByte('x'), ErrFreed)
	_, _, _, err = s.Free()
	assert.ErrorIs(t, err, ErrFreed)

	// the pins come back Disabled and current
	for _, p := range []gpio.Disabled{tx, rx} {
		st, err := p.State()
		require.NoError(t, err)
		assert.Equal(t, gpio.KindDisabled, st.Kind, p.ID().String())
		assert.Equal(t, uint32(pac.GPIO_MODE_DISABLED), f.chip.GPIO.Mode(p.ID().Port(), p.ID().Num()))
	}
	_, err = tx.PushPull(true)
	assert.NoError(t, err)
}

func TestDriverOwnsTokenAndLease(t *testing.T) {
	f := setup(t)
	tx, rx := f.routed(t, pac.USART0, f.pins.PA0, f.pins.PA1)
	lease, err := f.clock.EnableClock(pac.USART0)
	require.NoError(t, err)
	s, err := New(f.per.USART0, lease, tx, rx, Config{Baud: 115200})
	require.NoError(t, err)

	// the lease belongs to the driver now
	assert.True(t, lease.Bound())
	assert.ErrorIs(t, lease.Release(), cmu.ErrLeaseBound)
	assert.ErrorIs(t, f.clock.Disable(cmu.HFPERCLK), cmu.ErrClockInUse)
	assert.True(t, f.chip.GateOpen(pac.USART0))

	// and so does the register block
	_, _, err = f.per.USART0.Acquire()
	assert.ErrorIs(t, err, device.ErrTokenInUse)
	tx2, rx2 := f.routed(t, pac.USART0, f.pins.PF4, f.pins.PF5)
	lease2, err := f.clock.EnableClock(pac.USART0)
	require.NoError(t, err)
	_, err = New(f.per.USART0, lease2, tx2, rx2, Config{Baud: 115200})
	assert.ErrorIs(t, err, device.ErrTokenInUse)
	assert.False(t, lease2.Bound(), "a failed constructor leaves the lease with the caller")
	assert.NoError(t, lease2.Release())

	// a bound lease cannot be handed to a second driver either
	_, err = New(f.per.USART1, lease, tx2, rx2, Config{Baud: 115200})
	assert.ErrorIs(t, err, cmu.ErrLeaseBound)

	require.NoError(t, s.WriteByte('x'))
	_, _, _, err = s.Free()
	require.NoError(t, err)
	assert.False(t, lease.Live())
	assert.Zero(t, f.clock.Leases(cmu.HFPERCLK))
}
