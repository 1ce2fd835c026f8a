// Package board describes the hardware around the chip: crystal
// frequencies, the clock tree to set up at boot and which pins carry the
// console, LEDs, buttons and sensor bus.
package board

import (
	"errors"

	"efm32hal/cmu"
	"efm32hal/gpio"
	"efm32hal/hal"
)

var ErrInvalidProfile = errors.New("invalid board profile")

// FieldError reports an invalid profile entry.
type FieldError struct {
	Field string
	Value string
}

func (e *FieldError) Error() string {
	return "board: invalid " + e.Field + " \"" + e.Value + "\""
}

func (e *FieldError) Is(target error) bool { return target == ErrInvalidProfile }

// Profile is a board description.
type Profile struct {
	Name    string   `yaml:"name" json:"name"`
	Clocks  Clocks   `yaml:"clocks" json:"clocks"`
	Console Serial   `yaml:"console" json:"console"`
	LEDs    []string `yaml:"leds,omitempty" json:"leds,omitempty"`
	Buttons []string `yaml:"buttons,omitempty" json:"buttons,omitempty"`
	Sensor  I2C      `yaml:"sensor" json:"sensor"`
}

// Clocks is the clock tree set up by ConfigureClocks. Crystal frequencies
// are zero when the crystal is not fitted. Sources are domain names such
// as "HFXO".
type Clocks struct {
	HFXO         uint32 `yaml:"hfxo,omitempty" json:"hfxo,omitempty"`
	LFXO         uint32 `yaml:"lfxo,omitempty" json:"lfxo,omitempty"`
	HFRCO        uint32 `yaml:"hfrco,omitempty" json:"hfrco,omitempty"`
	DPLL         *PLL   `yaml:"dpll,omitempty" json:"dpll,omitempty"`
	HFCLK        string `yaml:"hfclk" json:"hfclk"`
	HFPERDivider uint32 `yaml:"hfper_divider" json:"hfper_divider"`
	LFA          string `yaml:"lfa,omitempty" json:"lfa,omitempty"`
	LFB          string `yaml:"lfb,omitempty" json:"lfb,omitempty"`
	LFE          string `yaml:"lfe,omitempty" json:"lfe,omitempty"`
}

// PLL locks HFRCO to Ref * Multiplier / Divider.
type PLL struct {
	Ref        string `yaml:"ref" json:"ref"`
	Multiplier uint32 `yaml:"multiplier" json:"multiplier"`
	Divider    uint32 `yaml:"divider" json:"divider"`
}

// Serial is a console port. Enable, when set, is a pin driven high to
// connect the port (e.g. the board controller's VCOM switch).
type Serial struct {
	USART  int    `yaml:"usart" json:"usart"`
	TX     string `yaml:"tx" json:"tx"`
	RX     string `yaml:"rx" json:"rx"`
	Enable string `yaml:"enable,omitempty" json:"enable,omitempty"`
	Baud   uint32 `yaml:"baud" json:"baud"`
}

// I2C is the sensor bus. Address is the on-board humidity sensor; Devices
// lists extra targets wired to the same bus.
type I2C struct {
	Bus       int      `yaml:"bus" json:"bus"`
	SCL       string   `yaml:"scl" json:"scl"`
	SDA       string   `yaml:"sda" json:"sda"`
	Enable    string   `yaml:"enable,omitempty" json:"enable,omitempty"`
	Address   uint16   `yaml:"address" json:"address"`
	Frequency uint32   `yaml:"frequency" json:"frequency"`
	Devices   []Device `yaml:"devices,omitempty" json:"devices,omitempty"`
}

// Device is an extra target on the sensor bus. A zero Address selects the
// driver's default.
type Device struct {
	Driver  string `yaml:"driver" json:"driver"`
	Address uint16 `yaml:"address,omitempty" json:"address,omitempty"`
}

// Drivers supported in Device.Driver
var Drivers = []string{"adxl345", "vl53l1x"}

func knownDriver(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}

// Default returns the profile of the SLSTK3402A starter kit.
func Default() *Profile {
	return &Profile{
		Name: "SLSTK3402A",
		Clocks: Clocks{
			HFXO:         38400000,
			LFXO:         32768,
			HFCLK:        "HFXO",
			HFPERDivider: 1,
			LFA:          "LFXO",
			LFB:          "LFXO",
			LFE:          "LFXO",
		},
		Console: Serial{
			USART:  0,
			TX:     "PA0",
			RX:     "PA1",
			Enable: "PA5",
			Baud:   115200,
		},
		LEDs:    []string{"PF4", "PF5"},
		Buttons: []string{"PF6", "PF7"},
		Sensor: I2C{
			Bus:       0,
			SCL:       "PC11",
			SDA:       "PC10",
			Enable:    "PB10",
			Address:   0x40,
			Frequency: 100000,
		},
	}
}

// applyDefaults fills in missing values
func applyDefaults(p *Profile) {
	if p.Name == "" {
		p.Name = "custom"
	}
	if p.Clocks.HFCLK == "" {
		if p.Clocks.HFXO != 0 {
			p.Clocks.HFCLK = "HFXO"
		} else {
			p.Clocks.HFCLK = "HFRCO"
		}
	}
	if p.Clocks.HFPERDivider == 0 {
		p.Clocks.HFPERDivider = 1
	}
	if p.Console.Baud == 0 {
		p.Console.Baud = 115200
	}
	if p.Sensor.Frequency == 0 {
		p.Sensor.Frequency = 100000
	}
}

// Validate checks every name and index in p.
func (p *Profile) Validate() error {
	c := &p.Clocks
	hf, ok := cmu.ParseDomain(c.HFCLK)
	if !ok {
		return &FieldError{"clocks.hfclk", c.HFCLK}
	}
	switch hf {
	case cmu.HFRCO, cmu.LFRCO, cmu.LFXO:
	case cmu.HFXO:
		if c.HFXO == 0 {
			return &FieldError{"clocks.hfclk", c.HFCLK + " without clocks.hfxo"}
		}
	default:
		return &FieldError{"clocks.hfclk", c.HFCLK}
	}
	if hf == cmu.LFXO && c.LFXO == 0 {
		return &FieldError{"clocks.hfclk", c.HFCLK + " without clocks.lfxo"}
	}
	if c.DPLL != nil {
		ref, ok := cmu.ParseDomain(c.DPLL.Ref)
		if !ok || (ref != cmu.HFXO && ref != cmu.LFXO) {
			return &FieldError{"clocks.dpll.ref", c.DPLL.Ref}
		}
		if hf != cmu.HFRCO {
			return &FieldError{"clocks.hfclk", c.HFCLK + " with a DPLL"}
		}
	}
	for _, lf := range []struct{ field, name string }{
		{"clocks.lfa", c.LFA}, {"clocks.lfb", c.LFB}, {"clocks.lfe", c.LFE},
	} {
		if lf.name == "" {
			continue
		}
		d, ok := cmu.ParseDomain(lf.name)
		if !ok || (d != cmu.LFRCO && d != cmu.LFXO && d != cmu.ULFRCO) {
			return &FieldError{lf.field, lf.name}
		}
		if d == cmu.LFXO && c.LFXO == 0 {
			return &FieldError{lf.field, lf.name + " without clocks.lfxo"}
		}
	}

	if p.Console.USART < 0 || p.Console.USART > 3 {
		return &FieldError{"console.usart", hal.Itoa(p.Console.USART)}
	}
	if p.Sensor.Bus < 0 || p.Sensor.Bus > 1 {
		return &FieldError{"sensor.bus", hal.Itoa(p.Sensor.Bus)}
	}
	if p.Sensor.Address > 0x7F {
		return &FieldError{"sensor.address", hal.Itoa(int(p.Sensor.Address))}
	}
	for _, d := range p.Sensor.Devices {
		if !knownDriver(d.Driver) {
			return &FieldError{"sensor.devices", d.Driver}
		}
		if d.Address > 0x7F {
			return &FieldError{"sensor.devices", d.Driver + " at " + hal.Itoa(int(d.Address))}
		}
	}

	pins := []struct{ field, name string }{
		{"console.tx", p.Console.TX},
		{"console.rx", p.Console.RX},
		{"console.enable", p.Console.Enable},
		{"sensor.scl", p.Sensor.SCL},
		{"sensor.sda", p.Sensor.SDA},
		{"sensor.enable", p.Sensor.Enable},
	}
	for _, name := range p.LEDs {
		pins = append(pins, struct{ field, name string }{"leds", name})
	}
	for _, name := range p.Buttons {
		pins = append(pins, struct{ field, name string }{"buttons", name})
	}
	for _, pin := range pins {
		if pin.name == "" {
			continue
		}
		id, err := gpio.ParsePin(pin.name)
		if err != nil || !gpio.Supported(id) {
			return &FieldError{pin.field, pin.name}
		}
	}
	return nil
}

// ConfigureClocks starts the oscillators and sets up the clock tree
// described by p. Oscillators a source needs are started on demand.
func ConfigureClocks(m *cmu.Manager, p *Profile) error {
	c := &p.Clocks
	if c.HFXO != 0 {
		if err := m.EnableOscillator(cmu.HFXO, c.HFXO); err != nil {
			return err
		}
	}
	if c.LFXO != 0 {
		if err := m.EnableOscillator(cmu.LFXO, c.LFXO); err != nil {
			return err
		}
	}
	if c.HFRCO != 0 {
		if err := m.EnableOscillator(cmu.HFRCO, c.HFRCO); err != nil {
			return err
		}
	}
	if c.DPLL != nil {
		ref, _ := cmu.ParseDomain(c.DPLL.Ref)
		err := m.Enable(cmu.DPLL, cmu.Config{
			Source:     ref,
			Multiplier: c.DPLL.Multiplier,
			Divider:    c.DPLL.Divider,
		})
		if err != nil {
			return err
		}
	}

	hf, ok := cmu.ParseDomain(c.HFCLK)
	if !ok {
		return &FieldError{"clocks.hfclk", c.HFCLK}
	}
	if err := start(m, hf); err != nil {
		return err
	}
	if err := m.Enable(cmu.HFCLK, cmu.Config{Source: hf}); err != nil {
		return err
	}
	if err := m.Enable(cmu.HFPERCLK, cmu.Config{Source: cmu.HFCLK, Divider: c.HFPERDivider}); err != nil {
		return err
	}

	for _, lf := range []struct {
		d    cmu.Domain
		name string
	}{
		{cmu.LFACLK, c.LFA}, {cmu.LFBCLK, c.LFB}, {cmu.LFECLK, c.LFE},
	} {
		if lf.name == "" {
			continue
		}
		src, ok := cmu.ParseDomain(lf.name)
		if !ok {
			return &FieldError{lf.d.String(), lf.name}
		}
		if err := start(m, src); err != nil {
			return err
		}
		if err := m.Enable(lf.d, cmu.Config{Source: src}); err != nil {
			return err
		}
	}
	return nil
}

// start enables oscillator d at its fixed frequency if it is not running
func start(m *cmu.Manager, d cmu.Domain) error {
	if m.IsEnabled(d) || !d.IsOscillator() {
		return nil
	}
	return m.EnableOscillator(d, 0)
}
