// Package app brings the starter kit up from a board profile and serves the
// console shell. The firmware target and the host tests both run it.
package app

import (
	"io"
	"time"

	"tinygo.org/x/drivers/adxl345"
	"tinygo.org/x/drivers/vl53l1x"

	"efm32hal/board"
	"efm32hal/cmu"
	"efm32hal/device"
	"efm32hal/gpio"
	"efm32hal/hal"
	"efm32hal/i2c"
	"efm32hal/pac"
	"efm32hal/shell"
	"efm32hal/si7021"
	"efm32hal/timer"
	"efm32hal/usart"
)

// TickPeriod is the uptime timer period.
const TickPeriod = time.Millisecond

// App holds the drivers of a running board.
type App struct {
	Profile *board.Profile
	Clocks  *cmu.Manager
	Pins    *gpio.Parts
	LEDs    []gpio.Output
	Buttons []gpio.Input
	Console *usart.Serial
	Sensor  *i2c.Bus
	Climate *si7021.Device
	Tick    *timer.Timer
	Shell   *shell.Shell

	out    io.Writer
	ticks  uint32
	rxErrs uint32
}

// New configures the clock tree, pins and drivers described by prof and
// registers the shell commands.
func New(per *device.Peripherals, prof *board.Profile) (*App, error) {
	if err := prof.Validate(); err != nil {
		return nil, err
	}
	a := &App{Profile: prof}

	m, err := cmu.New(per.CMU)
	if err != nil {
		return nil, err
	}
	a.Clocks = m
	if err := board.ConfigureClocks(m, prof); err != nil {
		return nil, err
	}

	lease, err := m.EnableClock(pac.GPIO)
	if err != nil {
		return nil, err
	}
	if a.Pins, err = gpio.Split(per.GPIO, lease); err != nil {
		return nil, err
	}

	if err := a.initPins(); err != nil {
		return nil, err
	}
	if err := a.initConsole(per); err != nil {
		return nil, err
	}
	if prof.Sensor.SCL != "" {
		if err := a.initSensor(per); err != nil {
			return nil, err
		}
	}
	if err := a.initTick(per); err != nil {
		return nil, err
	}

	a.out = hal.BlockingWriter(a.Console)
	a.Shell = shell.New(a.out)
	a.registerCommands()
	return a, nil
}

func (a *App) pin(name string) (gpio.Disabled, error) {
	id, err := gpio.ParsePin(name)
	if err != nil {
		return gpio.Disabled{}, hal.PinError(name, err)
	}
	return a.Pins.Pin(id)
}

// drive sets an enable pin high. Empty names are skipped.
func (a *App) drive(name string) error {
	if name == "" {
		return nil
	}
	p, err := a.pin(name)
	if err != nil {
		return err
	}
	_, err = p.PushPull(true)
	return err
}

func (a *App) initPins() error {
	for _, name := range a.Profile.LEDs {
		p, err := a.pin(name)
		if err != nil {
			return err
		}
		led, err := p.PushPull(false)
		if err != nil {
			return err
		}
		a.LEDs = append(a.LEDs, led)
	}
	for _, name := range a.Profile.Buttons {
		p, err := a.pin(name)
		if err != nil {
			return err
		}
		btn, err := p.Input(gpio.PullUp, true)
		if err != nil {
			return err
		}
		a.Buttons = append(a.Buttons, btn)
	}
	return nil
}

func (a *App) route(name string, fn gpio.Function) (gpio.Alternate, error) {
	p, err := a.pin(name)
	if err != nil {
		return gpio.Alternate{}, err
	}
	return p.Alternate(fn)
}

func (a *App) initConsole(per *device.Peripherals) error {
	c := a.Profile.Console
	tok := per.USART(c.USART)
	if err := a.drive(c.Enable); err != nil {
		return err
	}
	tx, err := a.route(c.TX, gpio.Function{Peripheral: tok.ID(), Signal: gpio.TX})
	if err != nil {
		return err
	}
	rx, err := a.route(c.RX, gpio.Function{Peripheral: tok.ID(), Signal: gpio.RX})
	if err != nil {
		return err
	}
	lease, err := a.Clocks.EnableClock(tok.ID())
	if err != nil {
		return err
	}
	a.Console, err = usart.New(tok, lease, tx, rx, usart.Config{Baud: c.Baud})
	if err != nil {
		lease.Release()
		return err
	}
	return nil
}

func (a *App) initSensor(per *device.Peripherals) error {
	s := a.Profile.Sensor
	tok := per.I2C(s.Bus)
	if err := a.drive(s.Enable); err != nil {
		return err
	}
	scl, err := a.route(s.SCL, gpio.Function{Peripheral: tok.ID(), Signal: gpio.SCL})
	if err != nil {
		return err
	}
	sda, err := a.route(s.SDA, gpio.Function{Peripheral: tok.ID(), Signal: gpio.SDA})
	if err != nil {
		return err
	}
	lease, err := a.Clocks.EnableClock(tok.ID())
	if err != nil {
		return err
	}
	a.Sensor, err = i2c.New(tok, lease, scl, sda, i2c.Config{Frequency: s.Frequency})
	if err != nil {
		lease.Release()
		return err
	}
	dev := si7021.New(a.Sensor)
	dev.Address = s.Address
	a.Climate = &dev
	return nil
}

func (a *App) initTick(per *device.Peripherals) error {
	lease, err := a.Clocks.EnableClock(per.TIMER0.ID())
	if err != nil {
		return err
	}
	if a.Tick, err = timer.New(per.TIMER0, lease, timer.Config{}); err != nil {
		lease.Release()
		return err
	}
	if err := a.Tick.SetPeriod(TickPeriod); err != nil {
		return err
	}
	return a.Tick.Start()
}

func (a *App) registerCommands() {
	s := a.Shell
	s.Register("clocks", "clocks", "show the clock tree", shell.Clocks(a.Clocks))
	s.Register("events", "events [clear|on|off|<periph>]", "show, clear or pause the event ring", shell.Events())
	s.Register("led", "led [n on|off|toggle]", "switch an LED", shell.LEDs(a.LEDs))
	s.Register("button", "button", "show button states", shell.Buttons(a.Buttons))
	s.Register("uptime", "uptime", "time since start", a.uptime)
	s.Register("serial", "serial", "console port statistics", a.serialStats)
	s.Register("debug", "debug on|off", "echo debug messages to the console", a.debug)
	if a.Sensor == nil {
		return
	}
	s.Register("i2c", "i2c scan|read|write ...", "access the sensor bus", shell.I2C(a.Sensor))
	s.Register("temp", "temp", "read temperature and humidity", shell.Climate(a.Climate))

	seen := map[string]int{}
	for _, d := range a.Profile.Sensor.Devices {
		var name, help string
		var addr uint16
		var h shell.Handler
		switch d.Driver {
		case "adxl345":
			dev := adxl345.New(a.Sensor)
			if d.Address != 0 {
				dev.Address = d.Address
			}
			name, help, addr, h = "accel", "read the accelerometer", dev.Address, shell.Accel(a.Sensor, &dev)
		case "vl53l1x":
			dev := vl53l1x.New(a.Sensor)
			if d.Address != 0 {
				dev.Address = d.Address
			}
			name, help, addr, h = "range", "read the distance sensor", dev.Address, shell.Range(&dev)
		default:
			continue
		}
		// a second device of the same kind becomes "accel2" and so on
		seen[name]++
		if n := seen[name]; n > 1 {
			name += hal.Itoa(n)
		}
		s.Register(name, name, help+" at "+hal.Hex(uint32(addr), 2), h)
	}
}

// Uptime returns the ticks counted by Poll.
func (a *App) Uptime() time.Duration {
	return time.Duration(a.ticks) * TickPeriod
}

// Banner writes the greeting and the first prompt.
func (a *App) Banner() {
	io.WriteString(a.out, a.Profile.Name+" console, "+hal.Utoa(a.Console.Baud())+" baud\r\n")
	io.WriteString(a.out, "type help for commands\r\n"+a.Shell.Prompt)
}

// Poll counts timer ticks and feeds received console bytes to the shell.
// Call it from the main loop.
func (a *App) Poll() {
	// ticks missed between polls are lost
	if a.Tick.Wait() == nil {
		a.ticks++
	}
	if err := a.Shell.Poll(a.Console); err != nil {
		a.rxErrs++
		// queued so the report does not write the console mid-receive
		hal.DebugAsync("[APP] console rx: " + err.Error())
	}
}

func (a *App) uptime(out io.Writer, _ []string) error {
	ms := a.ticks
	io.WriteString(out, hal.Utoa(ms/1000)+"."+pad3(ms%1000)+" s\r\n")
	return nil
}

func pad3(n uint32) string {
	s := hal.Utoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

func (a *App) serialStats(out io.Writer, _ []string) error {
	io.WriteString(out, a.Console.Peripheral().String()+" "+hal.Utoa(a.Console.Baud())+" baud\r\n")
	io.WriteString(out, "rx errors "+hal.Utoa(a.rxErrs)+", overruns "+hal.Utoa(a.Console.Overruns())+"\r\n")
	return nil
}

func (a *App) debug(out io.Writer, args []string) error {
	if len(args) != 2 {
		return shell.ErrUsage
	}
	switch args[1] {
	case "on":
		hal.SetDebugWriter(func(msg string) { io.WriteString(a.out, msg+"\r\n") })
		hal.SetDebugEnabled(true)
	case "off":
		hal.SetDebugEnabled(false)
	default:
		return shell.ErrUsage
	}
	return nil
}
