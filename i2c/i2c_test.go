package i2c

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

func (f *fixture) routed(t *testing.T) (gpio.Alternate, gpio.Alternate) {
	t.Helper()
	scl, err := f.pins.PC11.Alternate(gpio.Function{Peripheral: pac.I2C0, Signal: gpio.SCL})
	require.NoError(t, err)
	sda, err := f.pins.PC10.Alternate(gpio.Function{Peripheral: pac.I2C0, Signal: gpio.SDA})
	require.NoError(t, err)
	return scl, sda
}

func (f *fixture) bus(t *testing.T, cfg Config) *Bus {
	t.Helper()
	scl, sda := f.routed(t)
	lease, err := f.clock.EnableClock(pac.I2C0)
	require.NoError(t, err)
	b, err := New(f.per.I2C0, lease, scl, sda, cfg)
	require.NoError(t, err)
	return b
}

func TestTiming(t *testing.T) {
	tests := []struct {
		name     string
		hz, fscl uint32
		wantCLHR uint32
		wantDiv  uint32
		wantErr  error
	}{
		{"standard at 9.6MHz", 9600000, StandardMode, pac.I2C_CTRL_CLHR_STANDARD, 10, nil},
		{"standard at 19MHz", 19000000, StandardMode, pac.I2C_CTRL_CLHR_STANDARD, 21, nil},
		{"fast at 38.4MHz", 38400000, FastMode, pac.I2C_CTRL_CLHR_FAST, 4, nil},
		{"fast at 9.6MHz", 9600000, FastMode, 0, 0, ErrFrequency},
		{"too slow", 1000000, StandardMode, 0, 0, ErrClockTooLow},
		{"above fast mode", 38400000, 1000000, 0, 0, ErrFrequency},
		{"divider overflow", 40000000, 5000, 0, 0, ErrFrequency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clhr, div, err := timing(tt.hz, tt.fscl)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCLHR, clhr)
			assert.Equal(t, tt.wantDiv, div)
		})
	}
}

func TestNew(t *testing.T) {
	f := setup(t)
	require.True(t, f.chip.I2C[0].Busy(), "controller starts busy")

	b := f.bus(t, Config{})
	assert.Equal(t, uint32(100000), b.Frequency())
	assert.Equal(t, uint32(10), f.chip.Reg(pac.I2C0, pac.I2C_CLKDIV))
	assert.Equal(t, uint32(pac.I2C_CTRL_EN), f.chip.Reg(pac.I2C0, pac.I2C_CTRL))
	assert.False(t, f.chip.I2C[0].Busy(), "busy bus must be aborted")
	assert.Equal(t, uint32(15<<8|15), f.chip.Reg(pac.I2C0, pac.I2C_ROUTELOC0))
	assert.Equal(t, uint32(pac.I2C_ROUTEPEN_SCLPEN|pac.I2C_ROUTEPEN_SDAPEN),
		f.chip.Reg(pac.I2C0, pac.I2C_ROUTEPEN))
}

func TestNewRejects(t *testing.T) {
	t.Run("fast mode at 9.6MHz", func(t *testing.T) {
		f := setup(t)
		scl, sda := f.routed(t)
		lease, err := f.clock.EnableClock(pac.I2C0)
		require.NoError(t, err)
		f.chip.ResetLog()

		_, err = New(f.per.I2C0, lease, scl, sda, Config{Frequency: FastMode})
		assert.ErrorIs(t, err, hal.ErrClockConfig)
		assert.ErrorIs(t, err, ErrFrequency)
		assert.Zero(t, f.chip.WriteCount())
	})

	t.Run("swapped pins", func(t *testing.T) {
		f := setup(t)
		scl, sda := f.routed(t)
		lease, err := f.clock.EnableClock(pac.I2C0)
		require.NoError(t, err)
		f.chip.ResetLog()

		_, err = New(f.per.I2C0, lease, sda, scl, Config{})
		assert.ErrorIs(t, err, hal.ErrPinConfig)
		assert.ErrorIs(t, err, gpio.ErrWrongPinMode)
		assert.Zero(t, f.chip.WriteCount())
		assert.False(t, f.per.I2C0.InUse())
	})

	t.Run("token in use", func(t *testing.T) {
		f := setup(t)
		_, _, err := f.per.I2C0.Acquire()
		require.NoError(t, err)
		scl, sda := f.routed(t)
		lease, err := f.clock.EnableClock(pac.I2C0)
		require.NoError(t, err)

		_, err = New(f.per.I2C0, lease, scl, sda, Config{})
		assert.ErrorIs(t, err, device.ErrTokenInUse)
		// the pins stay with the caller
		assert.NoError(t, gpio.Check(scl, gpio.Function{Peripheral: pac.I2C0, Signal: gpio.SCL}))
	})
}

func TestWriteRead(t *testing.T) {
	f := setup(t)
	b := f.bus(t, Config{})
	target := &sim.MemTarget{}
	target.Registers[0x10] = 0xAB
	target.Registers[0x11] = 0xCD
	target.Registers[0x12] = 0xEF
	f.chip.I2C[0].Attach(0x40, target)

	buf := make([]byte, 3)
	require.NoError(t, b.Tx(0x40, []byte{0x10}, buf))
	assert.Equal(t, []byte{0xAB, 0xCD, 0xEF}, buf)

	require.NoError(t, b.WriteRegister(0x40, 0x20, []byte{1, 2}))
	assert.Equal(t, byte(1), target.Registers[0x20])
	assert.Equal(t, byte(2), target.Registers[0x21])
	assert.Equal(t, [][]byte{{0x10}, {0x20, 1, 2}}, target.Writes)

	one := make([]byte, 1)
	require.NoError(t, b.ReadRegister(0x40, 0x21, one))
	assert.Equal(t, byte(2), one[0])

	// a read-only transaction continues from the current register
	require.NoError(t, b.Tx(0x40, nil, one))
	assert.Equal(t, byte(0), one[0])
}

func TestNack(t *testing.T) {
	f := setup(t)
	b := f.bus(t, Config{})

	err := b.Tx(0x41, []byte{0x00}, nil)
	assert.ErrorIs(t, err, ErrNack)

	// the bus is usable after a NACK
	f.chip.I2C[0].Attach(0x41, &sim.MemTarget{})
	assert.NoError(t, b.Tx(0x41, []byte{0x00}, nil))
}

func TestBadRequests(t *testing.T) {
	f := setup(t)
	b := f.bus(t, Config{})
	f.chip.ResetLog()

	assert.ErrorIs(t, b.Tx(0x40, nil, nil), ErrEmpty)
	assert.ErrorIs(t, b.Tx(0x80, []byte{0}, nil), ErrAddress)
	assert.Zero(t, f.chip.WriteCount())
}

func TestStuckBus(t *testing.T) {
	f := setup(t)
	b := f.bus(t, Config{Spin: 5})
	f.chip.I2C[0].Attach(0x40, &sim.MemTarget{})
	f.chip.I2C[0].Hang(true)

	err := b.Tx(0x40, []byte{0x01}, nil)
	var busy *hal.PeripheralBusyError
	require.True(t, errors.As(err, &busy), "got %v", err)
	assert.Equal(t, "I2C0", busy.Peripheral)
	assert.True(t, hal.IsNotReady(err))

	f.chip.I2C[0].Hang(false)
	assert.NoError(t, b.Tx(0x40, []byte{0x01}, nil))
}

func TestFree(t *testing.T) {
	f := setup(t)
	b := f.bus(t, Config{})

	tok, scl, sda, err := b.Free()
	require.NoError(t, err)
	assert.False(t, tok.InUse())
	assert.False(t, f.chip.GateOpen(pac.I2C0))
	assert.ErrorIs(t, b.Tx(0x40, []byte{0}, nil), ErrFreed)

	for _, p := range []gpio.Disabled{scl, sda} {
		st, err := p.State()
		require.NoError(t, err)
		assert.Equal(t, gpio.KindDisabled, st.Kind, p.ID().String())
		assert.Equal(t, uint32(pac.GPIO_MODE_DISABLED), f.chip.GPIO.Mode(p.ID().Port(), p.ID().Num()))
	}
}
