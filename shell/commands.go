package shell

import (
	"io"
	"strconv"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/adxl345"
	"tinygo.org/x/drivers/vl53l1x"

	"efm32hal/cmu"
	"efm32hal/gpio"
	"efm32hal/hal"
	"efm32hal/pac"
	"efm32hal/si7021"
)

func line(out io.Writer, parts ...string) {
	for _, p := range parts {
		io.WriteString(out, p)
	}
	io.WriteString(out, "\r\n")
}

// fixed formats v/scale with the given number of decimals.
func fixed(v int32, scale int32, decimals int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	frac := hal.Itoa(int(v % scale))
	for len(frac) < len(hal.Itoa(int(scale)))-1 {
		frac = "0" + frac
	}
	return sign + hal.Itoa(int(v/scale)) + "." + frac[:decimals]
}

func index(arg string, n int) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 || i >= n {
		return 0, ErrUsage
	}
	return i, nil
}

// Clocks lists the running clock domains with their source and frequency.
func Clocks(m *cmu.Manager) Handler {
	return func(out io.Writer, args []string) error {
		for _, d := range cmu.AllDomains() {
			if !m.IsEnabled(d) {
				continue
			}
			src := ""
			if s := m.Source(d); s != cmu.None {
				src = " <- " + s.String()
			}
			leases := ""
			if n := m.Leases(d); n > 0 {
				leases = " (" + hal.Itoa(n) + " leases)"
			}
			line(out, pad(d.String(), 10), hal.Utoa(m.Frequency(d)), " Hz", src, leases)
		}
		return nil
	}
}

// Events prints the event ring. "events clear" empties it, "events
// on|off" starts or stops recording and "events <peripheral>" shows only
// the events of one instance, e.g. "events USART0".
func Events() Handler {
	return func(out io.Writer, args []string) error {
		if len(args) > 2 {
			return ErrUsage
		}
		only := -1
		if len(args) == 2 {
			switch args[1] {
			case "clear":
				hal.ClearEvents()
				return nil
			case "on":
				hal.SetEventsEnabled(true)
				return nil
			case "off":
				hal.SetEventsEnabled(false)
				return nil
			}
			p, ok := pac.PeripheralByName(args[1])
			if !ok {
				return ErrUsage
			}
			only = int(p)
		}
		for _, evt := range hal.Events() {
			if only >= 0 && int(evt.Peripheral) != only {
				continue
			}
			periph := ""
			if evt.Peripheral != hal.NoPeripheral {
				periph = " " + pac.Peripheral(evt.Peripheral).String()
			}
			line(out, pad(evt.Kind.String(), 10), periph,
				" v1=", hal.Utoa(evt.Value1), " v2=", hal.Utoa(evt.Value2))
		}
		return nil
	}
}

// LEDs switches outputs: "led <n> on|off|toggle", or "led" to list them.
func LEDs(leds []gpio.Output) Handler {
	return func(out io.Writer, args []string) error {
		if len(args) == 1 {
			for i, led := range leds {
				on, err := led.IsSetHigh()
				if err != nil {
					return err
				}
				state := "off"
				if on {
					state = "on"
				}
				line(out, "led ", hal.Itoa(i), " (", led.ID().String(), "): ", state)
			}
			return nil
		}
		if len(args) != 3 {
			return ErrUsage
		}
		i, err := index(args[1], len(leds))
		if err != nil {
			return err
		}
		switch args[2] {
		case "on":
			return leds[i].High()
		case "off":
			return leds[i].Low()
		case "toggle":
			return leds[i].Toggle()
		}
		return ErrUsage
	}
}

// Buttons prints the input levels. Buttons on the kit are active low.
func Buttons(buttons []gpio.Input) Handler {
	return func(out io.Writer, args []string) error {
		for i, b := range buttons {
			high, err := b.Get()
			if err != nil {
				return err
			}
			state := "released"
			if !high {
				state = "pressed"
			}
			line(out, "button ", hal.Itoa(i), " (", b.ID().String(), "): ", state)
		}
		return nil
	}
}

func parseByte(s string, max uint64) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil || v > max {
		return 0, ErrUsage
	}
	return uint8(v), nil
}

// I2C reads and writes registers on a bus:
//
//	i2c scan
//	i2c read <addr> <reg> [count]
//	i2c write <addr> <reg> <byte>...
func I2C(bus drivers.I2C) Handler {
	return func(out io.Writer, args []string) error {
		if len(args) < 2 {
			return ErrUsage
		}
		switch args[1] {
		case "scan":
			var buf [1]byte
			found := 0
			for addr := uint16(0x08); addr < 0x78; addr++ {
				if bus.Tx(addr, nil, buf[:]) == nil {
					line(out, hal.Hex(uint32(addr), 2))
					found++
				}
			}
			line(out, hal.Itoa(found), " devices")
			return nil
		case "read":
			if len(args) < 4 || len(args) > 5 {
				return ErrUsage
			}
			addr, err := parseByte(args[2], 0x7F)
			if err != nil {
				return err
			}
			reg, err := parseByte(args[3], 0xFF)
			if err != nil {
				return err
			}
			count := uint8(1)
			if len(args) == 5 {
				if count, err = parseByte(args[4], 32); err != nil || count == 0 {
					return ErrUsage
				}
			}
			data := make([]byte, count)
			if err := bus.Tx(uint16(addr), []byte{reg}, data); err != nil {
				return err
			}
			s := ""
			for i, b := range data {
				if i > 0 {
					s += " "
				}
				s += hal.Hex(uint32(b), 2)
			}
			line(out, s)
			return nil
		case "write":
			if len(args) < 5 {
				return ErrUsage
			}
			addr, err := parseByte(args[2], 0x7F)
			if err != nil {
				return err
			}
			w := make([]byte, 0, len(args)-3)
			for _, a := range args[3:] {
				b, err := parseByte(a, 0xFF)
				if err != nil {
					return err
				}
				w = append(w, b)
			}
			return bus.Tx(uint16(addr), w, nil)
		}
		return ErrUsage
	}
}

// Climate reads temperature and humidity from the Si7021.
func Climate(sensor *si7021.Device) Handler {
	return func(out io.Writer, args []string) error {
		temp, rh, err := sensor.ReadTemperatureHumidity()
		if err != nil {
			return err
		}
		line(out, "temperature ", fixed(temp, 1000, 2), " C")
		line(out, "humidity    ", fixed(rh, 100, 2), " %")
		return nil
	}
}

// adxl345 DEVID register and its fixed value
const (
	adxlDevID   = 0x00
	adxlPartID  = 0xE5
	rangePeriod = 50
)

// Accel prints the acceleration from an ADXL345 in milli-g. The part is
// probed on every call and configured on the first good probe.
func Accel(bus drivers.I2C, sensor *adxl345.Device) Handler {
	configured := false
	return func(out io.Writer, args []string) error {
		var id [1]byte
		if err := bus.Tx(sensor.Address, []byte{adxlDevID}, id[:]); err != nil {
			return err
		}
		if id[0] != adxlPartID {
			return ErrNotResponding
		}
		if !configured {
			sensor.Configure()
			configured = true
		}
		x, y, z, err := sensor.ReadAcceleration()
		if err != nil {
			return err
		}
		line(out, "x ", hal.Itoa(int(x)), " y ", hal.Itoa(int(y)), " z ", hal.Itoa(int(z)), " mg")
		return nil
	}
}

// Range prints the distance measured by a VL53L1X. The sensor is set up
// for continuous ranging on first use.
func Range(sensor *vl53l1x.Device) Handler {
	ranging := false
	return func(out io.Writer, args []string) error {
		if !ranging {
			if !sensor.Configure(true) {
				return ErrNotResponding
			}
			sensor.StartContinuous(rangePeriod)
			ranging = true
		}
		mm := sensor.Read(true)
		line(out, "distance ", hal.Utoa(uint32(mm)), " mm")
		return nil
	}
}
