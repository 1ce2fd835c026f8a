package sim

import "efm32hal/pac"

// Chip is a simulated EFM32PG12: a Bus with models of the CMU, GPIO,
// USART, I2C and TIMER peripherals attached. Peripherals without a model
// behave as plain memory.
type Chip struct {
	*Bus

	CMU    *CMU
	GPIO   *GPIO
	USART  [4]*USART
	I2C    [2]*I2C
	Timers [4]*Timer
}

// New returns a chip in its reset state.
func New() *Chip {
	bus := NewBus()
	c := &Chip{Bus: bus}
	c.CMU = newCMU(bus)
	c.GPIO = newGPIO(bus)
	for i, p := range []pac.Peripheral{pac.USART0, pac.USART1, pac.USART2, pac.USART3} {
		c.USART[i] = newUSART(bus, p)
	}
	for i, p := range []pac.Peripheral{pac.I2C0, pac.I2C1} {
		c.I2C[i] = newI2C(bus, p)
	}
	for i, p := range []pac.Peripheral{pac.TIMER0, pac.TIMER1, pac.WTIMER0, pac.WTIMER1} {
		c.Timers[i] = newTimer(bus, p)
	}
	bus.ResetLog()
	return c
}

// USARTFor returns the model of USART instance p, or nil if p is not a
// USART.
func (c *Chip) USARTFor(p pac.Peripheral) *USART {
	if !p.IsUSART() {
		return nil
	}
	return c.USART[p-pac.USART0]
}

// I2CFor returns the model of I2C instance p, or nil if p is not an I2C.
func (c *Chip) I2CFor(p pac.Peripheral) *I2C {
	if !p.IsI2C() {
		return nil
	}
	return c.I2C[p-pac.I2C0]
}

// TimerFor returns the model of TIMER/WTIMER instance p, or nil.
func (c *Chip) TimerFor(p pac.Peripheral) *Timer {
	if !p.IsTimer() {
		return nil
	}
	return c.Timers[p-pac.TIMER0]
}

// Reg returns the backing value of register off in peripheral p.
func (c *Chip) Reg(p pac.Peripheral, off uintptr) uint32 {
	return c.Peek(p.Base() + off)
}

// GateOpen reports whether the clock gate of p is set.
func (c *Chip) GateOpen(p pac.Peripheral) bool {
	g, ok := pac.ClockGate(p)
	if !ok {
		return false
	}
	return c.Reg(pac.CMU, g.Offset)&g.Mask() != 0
}
