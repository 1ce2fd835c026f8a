package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"efm32hal/board"
	"efm32hal/cmu"
	"efm32hal/device"
	"efm32hal/gpio"
	"efm32hal/hal"
	"efm32hal/pac"
	"efm32hal/sim"
)

type fixture struct {
	chip   *sim.Chip
	app    *App
	sensor *sim.MemTarget
}

func start(t *testing.T, prof *board.Profile) *fixture {
	t.Helper()
	chip := sim.New()
	sensor := &sim.MemTarget{}
	// measure RH (0xE5) with checksum, then the temperature from that
	// conversion (0xE0)
	copy(sensor.Registers[0xE5:], []byte{0x66, 0x4C, 0x4F})
	copy(sensor.Registers[0xE0:], []byte{0x7C, 0x80})
	chip.I2C[0].Attach(0x40, sensor)

	dev, err := device.Take(chip)
	require.NoError(t, err)
	per, err := dev.Split()
	require.NoError(t, err)
	a, err := New(per, prof)
	require.NoError(t, err)
	return &fixture{chip: chip, app: a, sensor: sensor}
}

// run types line on the console and returns what the board answered
func (f *fixture) run(t *testing.T, line string) string {
	t.Helper()
	con := f.chip.USARTFor(pac.USART0)
	con.ClearTransmitted()
	con.Inject([]byte(line + "\r")...)
	f.app.Poll()
	return string(con.Transmitted())
}

func TestBringUp(t *testing.T) {
	f := start(t, board.Default())
	a := f.app

	assert.Equal(t, uint32(38400000), a.Clocks.Frequency(cmu.HFPERCLK))
	assert.InDelta(t, 115200, a.Console.Baud(), 115200*0.02)
	assert.Len(t, a.LEDs, 2)
	assert.Len(t, a.Buttons, 2)
	require.NotNil(t, a.Sensor)
	assert.Equal(t, uint32(100000), a.Sensor.Frequency())

	assert.True(t, f.chip.GPIO.Out(0, 5), "VCOM enable driven high")
	assert.True(t, f.chip.GPIO.Out(1, 10), "sensor enable driven high")
	assert.Equal(t, uint32(pac.GPIO_MODE_PUSHPULL), f.chip.GPIO.Mode(5, 4))
	assert.True(t, a.Tick.Running())
	assert.Equal(t, uint32(38399), f.chip.Reg(pac.TIMER0, pac.TIMER_TOP))

	for _, p := range []pac.Peripheral{pac.GPIO, pac.USART0, pac.I2C0, pac.TIMER0} {
		assert.True(t, f.chip.GateOpen(p), p.String())
	}
}

func TestBanner(t *testing.T) {
	f := start(t, board.Default())
	f.app.Banner()
	out := string(f.chip.USARTFor(pac.USART0).Transmitted())
	assert.True(t, strings.HasPrefix(out, "SLSTK3402A console, "))
	assert.True(t, strings.HasSuffix(out, "> "))
}

func TestShellCommands(t *testing.T) {
	f := start(t, board.Default())

	out := f.run(t, "led 1 on")
	assert.Equal(t, "led 1 on\r\n> ", out)
	assert.True(t, f.chip.GPIO.Out(5, 5))

	out = f.run(t, "led")
	assert.Contains(t, out, "led 0 (PF4): off")
	assert.Contains(t, out, "led 1 (PF5): on")

	f.chip.GPIO.SetLevel(5, 6, false)
	f.chip.GPIO.SetLevel(5, 7, true)
	out = f.run(t, "button")
	assert.Contains(t, out, "button 0 (PF6): pressed")
	assert.Contains(t, out, "button 1 (PF7): released")

	out = f.run(t, "temp")
	assert.Contains(t, out, "temperature 38.60 C")
	assert.Contains(t, out, "humidity    43.94 %")

	out = f.run(t, "clocks")
	assert.Contains(t, out, "HFXO")
	assert.Contains(t, out, "38400000 Hz")

	out = f.run(t, "i2c read 0x40 0xe0 2")
	assert.Contains(t, out, "0x7c 0x80")

	out = f.run(t, "i2c write 0x40 0x10 0xaa 0xbb")
	assert.NotContains(t, out, "error")
	assert.Equal(t, []byte{0xAA, 0xBB}, f.sensor.Registers[0x10:0x12])

	out = f.run(t, "i2c read 0x41 0x00")
	assert.Contains(t, out, "error: ")

	out = f.run(t, "led 7 on")
	assert.Contains(t, out, "error: bad arguments")
}

func TestUptime(t *testing.T) {
	f := start(t, board.Default())
	tick := f.chip.TimerFor(pac.TIMER0)
	for i := 0; i < 20; i++ {
		tick.Advance(38400)
		f.app.Poll()
	}
	assert.Equal(t, int64(20), f.app.Uptime().Milliseconds())
	assert.Contains(t, f.run(t, "uptime"), "0.020 s")
}

func TestConsoleErrors(t *testing.T) {
	f := start(t, board.Default())
	con := f.chip.USARTFor(pac.USART0)
	con.InjectError('x', true, false)
	f.app.Poll()
	assert.Contains(t, f.run(t, "serial"), "rx errors 1")
}

func TestEvents(t *testing.T) {
	hal.ClearEvents()
	f := start(t, board.Default())
	out := f.run(t, "events")
	assert.Contains(t, out, "PIN")
	assert.Contains(t, out, "DRV_NEW")

	out = f.run(t, "events USART0")
	assert.Contains(t, out, "USART0 v1=115200")
	assert.NotContains(t, out, "PIN")
	assert.NotContains(t, out, "TIMER0")

	f.run(t, "events clear")
	// the clear command itself is recorded before it runs
	assert.Empty(t, hal.Events())

	defer hal.SetEventsEnabled(true)
	f.run(t, "events off")
	require.Len(t, hal.Events(), 1, "only the off command is recorded")
	f.run(t, "led 0 on")
	assert.Len(t, hal.Events(), 1)
	f.run(t, "events on")
	f.run(t, "led 0 off")
	assert.Len(t, hal.Events(), 3)

	assert.Contains(t, f.run(t, "events maybe"), "error: bad arguments")
}

func TestProfileWithoutSensor(t *testing.T) {
	prof := board.Default()
	prof.Sensor = board.I2C{}
	prof.Clocks.HFPERDivider = 4
	f := start(t, prof)
	assert.Nil(t, f.app.Sensor)
	assert.Contains(t, f.run(t, "temp"), "error: unknown command")
	assert.Equal(t, uint32(9599), f.chip.Reg(pac.TIMER0, pac.TIMER_TOP))
}

func TestBadPinAssignment(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(p *board.Profile)
		want  error
		field string
	}{
		{"pin used twice", func(p *board.Profile) { p.LEDs = []string{"PA0"} }, gpio.ErrPinConsumed, ""},
		{"not a pin name", func(p *board.Profile) { p.LEDs = []string{"LED0"} }, board.ErrInvalidProfile, "leds"},
		{"usart out of range", func(p *board.Profile) { p.Console.USART = 7 }, board.ErrInvalidProfile, "console.usart"},
		{"i2c out of range", func(p *board.Profile) { p.Sensor.Bus = 5 }, board.ErrInvalidProfile, "sensor.bus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chip := sim.New()
			dev, err := device.Take(chip)
			require.NoError(t, err)
			per, err := dev.Split()
			require.NoError(t, err)

			prof := board.Default()
			tt.edit(prof)
			var a *App
			require.NotPanics(t, func() { a, err = New(per, prof) })
			assert.Nil(t, a)
			assert.ErrorIs(t, err, tt.want)
			if tt.field == "" {
				assert.ErrorIs(t, err, hal.ErrPinConfig)
				return
			}
			var fe *board.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.Zero(t, chip.WriteCount(), "nothing configured for an invalid profile")
		})
	}
}

func TestPinNameRejected(t *testing.T) {
	f := start(t, board.Default())
	_, err := f.app.pin("LED0")
	assert.ErrorIs(t, err, hal.ErrPinConfig)
	assert.ErrorIs(t, err, gpio.ErrBadPinName)
}

func TestExtraDevices(t *testing.T) {
	prof := board.Default()
	prof.Sensor.Devices = []board.Device{
		{Driver: "adxl345"},
		{Driver: "vl53l1x"},
		{Driver: "adxl345", Address: 0x1D},
	}
	f := start(t, prof)
	accel := &sim.MemTarget{}
	accel.Registers[0x00] = 0xE5
	// x=1, y=-1, z=256 counts, little endian
	copy(accel.Registers[0x32:], []byte{0x01, 0x00, 0xFF, 0xFF, 0x00, 0x01})
	f.chip.I2C[0].Attach(0x53, accel)

	out := f.run(t, "accel")
	assert.Contains(t, out, "x 4 y -4 z 1024 mg\r\n")
	assert.Equal(t, byte(0x1A), accel.Registers[0x2C], "low power, 100 Hz")
	assert.Equal(t, byte(0x08), accel.Registers[0x2D], "measuring")
	assert.Equal(t, byte(0x00), accel.Registers[0x31], "2 g range")

	assert.Contains(t, f.run(t, "accel2"), "error: ", "nothing at 0x1d")
	assert.Contains(t, f.run(t, "range"), "error: device not responding")

	help := f.run(t, "help")
	assert.Contains(t, help, "read the accelerometer at 0x53")
	assert.Contains(t, help, "read the accelerometer at 0x1d")
	assert.Contains(t, help, "read the distance sensor at 0x29")
}
