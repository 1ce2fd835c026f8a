// Package device hands out the chip's peripherals as ownership tokens.
//
// A Device is taken once per register bus and split once into one token per
// physical peripheral instance. A token is the only way to obtain the
// register block of its peripheral, and it hands the block out to one
// holder at a time. Drivers take a token in their constructor and give it
// back in Free.
package device

import (
	"errors"

	"efm32hal/hal"
	"efm32hal/mmio"
	"efm32hal/pac"
)

var (
	ErrAlreadyTaken = errors.New("device already taken")
	ErrAlreadySplit = errors.New("device already split")
	ErrTokenInUse   = errors.New("peripheral token in use")
	ErrNoHardware   = errors.New("no memory-mapped hardware on this build")
	ErrNilBus       = errors.New("nil register bus")
)

// taken records the buses a Device was created for
var taken = map[mmio.Bus]bool{}

// Device is the whole chip before it has been split into peripherals.
type Device struct {
	bus   mmio.Bus
	split bool
}

// Take claims the device on bus. It succeeds once per bus for the life of
// the process.
func Take(bus mmio.Bus) (*Device, error) {
	if bus == nil {
		return nil, ErrNilBus
	}
	state := hal.DisableInterrupts()
	defer hal.RestoreInterrupts(state)

	if taken[bus] {
		return nil, ErrAlreadyTaken
	}
	taken[bus] = true
	return &Device{bus: bus}, nil
}

// TakeHardware claims the device on the memory-mapped bus of the running
// chip.
func TakeHardware() (*Device, error) {
	bus := mmio.Hardware()
	if bus == nil {
		return nil, ErrNoHardware
	}
	return Take(bus)
}

// Bus returns the register bus of the device.
func (d *Device) Bus() mmio.Bus { return d.bus }

// Split consumes the device and returns one token per peripheral.
func (d *Device) Split() (*Peripherals, error) {
	state := hal.DisableInterrupts()
	defer hal.RestoreInterrupts(state)

	if d.split {
		return nil, ErrAlreadySplit
	}
	d.split = true

	b := d.bus
	return &Peripherals{
		CMU:       &CMU{newToken(pac.CMU, b)},
		GPIO:      &GPIO{newToken(pac.GPIO, b)},
		USART0:    &USART{newToken(pac.USART0, b)},
		USART1:    &USART{newToken(pac.USART1, b)},
		USART2:    &USART{newToken(pac.USART2, b)},
		USART3:    &USART{newToken(pac.USART3, b)},
		I2C0:      &I2C{newToken(pac.I2C0, b)},
		I2C1:      &I2C{newToken(pac.I2C1, b)},
		TIMER0:    &Timer{newToken(pac.TIMER0, b)},
		TIMER1:    &Timer{newToken(pac.TIMER1, b)},
		WTIMER0:   &Timer{newToken(pac.WTIMER0, b)},
		WTIMER1:   &Timer{newToken(pac.WTIMER1, b)},
		LEUART0:   &Peripheral{newToken(pac.LEUART0, b)},
		LETIMER0:  &Peripheral{newToken(pac.LETIMER0, b)},
		RTCC:      &Peripheral{newToken(pac.RTCC, b)},
		CRYOTIMER: &Peripheral{newToken(pac.CRYOTIMER, b)},
		ADC0:      &Peripheral{newToken(pac.ADC0, b)},
		IDAC0:     &Peripheral{newToken(pac.IDAC0, b)},
		VDAC0:     &Peripheral{newToken(pac.VDAC0, b)},
		ACMP0:     &Peripheral{newToken(pac.ACMP0, b)},
		ACMP1:     &Peripheral{newToken(pac.ACMP1, b)},
		CSEN:      &Peripheral{newToken(pac.CSEN, b)},
		TRNG0:     &Peripheral{newToken(pac.TRNG0, b)},
		PRS:       &Peripheral{newToken(pac.PRS, b)},
		LDMA:      &Peripheral{newToken(pac.LDMA, b)},
		GPCRC:     &Peripheral{newToken(pac.GPCRC, b)},
		CRYPTO0:   &Peripheral{newToken(pac.CRYPTO0, b)},
		CRYPTO1:   &Peripheral{newToken(pac.CRYPTO1, b)},
	}, nil
}

// Peripherals holds one token per peripheral instance.
type Peripherals struct {
	CMU  *CMU
	GPIO *GPIO

	USART0, USART1, USART2, USART3 *USART
	I2C0, I2C1                     *I2C
	TIMER0, TIMER1                 *Timer
	WTIMER0, WTIMER1               *Timer

	LEUART0   *Peripheral
	LETIMER0  *Peripheral
	RTCC      *Peripheral
	CRYOTIMER *Peripheral
	ADC0      *Peripheral
	IDAC0     *Peripheral
	VDAC0     *Peripheral
	ACMP0     *Peripheral
	ACMP1     *Peripheral
	CSEN      *Peripheral
	TRNG0     *Peripheral
	PRS       *Peripheral
	LDMA      *Peripheral
	GPCRC     *Peripheral
	CRYPTO0   *Peripheral
	CRYPTO1   *Peripheral
}

// USART returns the token of USART instance n (0..3).
func (p *Peripherals) USART(n int) *USART {
	switch n {
	case 0:
		return p.USART0
	case 1:
		return p.USART1
	case 2:
		return p.USART2
	case 3:
		return p.USART3
	}
	return nil
}

// I2C returns the token of I2C instance n (0..1).
func (p *Peripherals) I2C(n int) *I2C {
	switch n {
	case 0:
		return p.I2C0
	case 1:
		return p.I2C1
	}
	return nil
}
