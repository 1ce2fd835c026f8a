// Package gpio is the pin configuration state machine and GPIO driver.
//
// Split hands out one Disabled handle per pin. Every transition consumes the
// handle it is called on and returns a handle of the new type; the old one
// is stale from then on and every operation on it fails with
// ErrPinConsumed. Peripheral drivers take pins that were moved to the
// matching Alternate function with Bind.
package gpio

import (
	"efm32hal/cmu"
	"efm32hal/device"
	"efm32hal/hal"
	"efm32hal/mmio"
	"efm32hal/pac"
)

const numSlots = pac.NumPorts * 16

type slot struct {
	gen   uint32
	state State
	loc   uint8
}

type controller struct {
	tok       *device.GPIO
	lease     *cmu.Lease
	regs      mmio.Block
	freeRegs  func()
	freeClock func()
	freed     bool
	slots     [numSlots]slot
}

// Parts holds one Disabled handle per pin of the package.
type Parts struct {
	c *controller

	PA0, PA1, PA2, PA3, PA4, PA5, PA6, PA7, PA8, PA9                 Disabled
	PB6, PB7, PB8, PB9, PB10, PB11, PB12, PB13, PB14, PB15           Disabled
	PC0, PC1, PC2, PC3, PC4, PC5, PC6, PC7, PC8, PC9, PC10, PC11     Disabled
	PD8, PD9, PD10, PD11, PD12, PD13, PD14, PD15                     Disabled
	PF4, PF5, PF6, PF7, PF8, PF9, PF10, PF11, PF12, PF13, PF14, PF15 Disabled
	PI0, PI1, PI2, PI3                                               Disabled
	PJ14, PJ15                                                       Disabled
	PK0, PK1, PK2                                                    Disabled
}

// Split takes the GPIO token and its clock lease and returns the pins. The
// pins are assumed to be in their reset state.
func Split(tok *device.GPIO, lease *cmu.Lease) (*Parts, error) {
	if err := cmu.Check(lease, pac.GPIO); err != nil {
		return nil, err
	}
	regs, freeRegs, err := tok.Acquire()
	if err != nil {
		return nil, err
	}
	freeClock, err := cmu.Bind(lease, pac.GPIO)
	if err != nil {
		freeRegs()
		return nil, err
	}
	c := &controller{tok: tok, lease: lease, regs: regs, freeRegs: freeRegs, freeClock: freeClock}
	for i := range c.slots {
		c.slots[i].gen = 1
	}
	hal.RecordEvent(hal.EvtDriverNew, uint8(pac.GPIO), 0, 0)
	return &Parts{
		c: c,

		PA0:  c.initial(pac.PortA, 0),
		PA1:  c.initial(pac.PortA, 1),
		PA2:  c.initial(pac.PortA, 2),
		PA3:  c.initial(pac.PortA, 3),
		PA4:  c.initial(pac.PortA, 4),
		PA5:  c.initial(pac.PortA, 5),
		PA6:  c.initial(pac.PortA, 6),
		PA7:  c.initial(pac.PortA, 7),
		PA8:  c.initial(pac.PortA, 8),
		PA9:  c.initial(pac.PortA, 9),
		PB6:  c.initial(pac.PortB, 6),
		PB7:  c.initial(pac.PortB, 7),
		PB8:  c.initial(pac.PortB, 8),
		PB9:  c.initial(pac.PortB, 9),
		PB10: c.initial(pac.PortB, 10),
		PB11: c.initial(pac.PortB, 11),
		PB12: c.initial(pac.PortB, 12),
		PB13: c.initial(pac.PortB, 13),
		PB14: c.initial(pac.PortB, 14),
		PB15: c.initial(pac.PortB, 15),
		PC0:  c.initial(pac.PortC, 0),
		PC1:  c.initial(pac.PortC, 1),
		PC2:  c.initial(pac.PortC, 2),
		PC3:  c.initial(pac.PortC, 3),
		PC4:  c.initial(pac.PortC, 4),
		PC5:  c.initial(pac.PortC, 5),
		PC6:  c.initial(pac.PortC, 6),
		PC7:  c.initial(pac.PortC, 7),
		PC8:  c.initial(pac.PortC, 8),
		PC9:  c.initial(pac.PortC, 9),
		PC10: c.initial(pac.PortC, 10),
		PC11: c.initial(pac.PortC, 11),
		PD8:  c.initial(pac.PortD, 8),
		PD9:  c.initial(pac.PortD, 9),
		PD10: c.initial(pac.PortD, 10),
		PD11: c.initial(pac.PortD, 11),
		PD12: c.initial(pac.PortD, 12),
		PD13: c.initial(pac.PortD, 13),
		PD14: c.initial(pac.PortD, 14),
		PD15: c.initial(pac.PortD, 15),
		PF4:  c.initial(pac.PortF, 4),
		PF5:  c.initial(pac.PortF, 5),
		PF6:  c.initial(pac.PortF, 6),
		PF7:  c.initial(pac.PortF, 7),
		PF8:  c.initial(pac.PortF, 8),
		PF9:  c.initial(pac.PortF, 9),
		PF10: c.initial(pac.PortF, 10),
		PF11: c.initial(pac.PortF, 11),
		PF12: c.initial(pac.PortF, 12),
		PF13: c.initial(pac.PortF, 13),
		PF14: c.initial(pac.PortF, 14),
		PF15: c.initial(pac.PortF, 15),
		PI0:  c.initial(pac.PortI, 0),
		PI1:  c.initial(pac.PortI, 1),
		PI2:  c.initial(pac.PortI, 2),
		PI3:  c.initial(pac.PortI, 3),
		PJ14: c.initial(pac.PortJ, 14),
		PJ15: c.initial(pac.PortJ, 15),
		PK0:  c.initial(pac.PortK, 0),
		PK1:  c.initial(pac.PortK, 1),
		PK2:  c.initial(pac.PortK, 2),
	}, nil
}

func (c *controller) initial(port, num uint8) Disabled {
	return Disabled{ref{c: c, id: Pin(port, num), gen: 1}}
}

// Pin returns the handle Split created for p. It is stale once p has been
// transitioned.
func (p *Parts) Pin(id PinID) (Disabled, error) {
	if !Supported(id) {
		return Disabled{}, hal.PinError(id.String(), ErrNoSuchFunction)
	}
	return p.c.initial(id.Port(), id.Num()), nil
}

// Free gives back the GPIO token and the clock lease. Every pin must be
// Disabled.
func (p *Parts) Free() (*device.GPIO, error) {
	c := p.c
	if c.freed {
		return nil, hal.PinError("GPIO", ErrPortNotClocked)
	}
	for _, id := range SupportedPins() {
		if c.slots[id].state.Kind != KindDisabled {
			return nil, hal.PinError(id.String(), ErrPinInUse)
		}
	}
	c.freed = true
	c.freeClock()
	c.freeRegs()
	hal.RecordEvent(hal.EvtDriverFree, uint8(pac.GPIO), 0, 0)
	return c.tok, nil
}

func (c *controller) writeMode(id PinID, mode uint32) {
	off, pos := pac.GPIOModeReg(id.Port(), id.Num())
	c.regs.Reg(off).ReplaceBits(mode, pac.GPIO_MODE_MASK, pos)
}

func (c *controller) writeOut(id PinID, high bool) {
	dout := c.regs.Reg(pac.GPIOPort(id.Port()) + pac.GPIO_P_DOUT)
	if high {
		dout.SetBits(1 << id.Num())
	} else {
		dout.ClearBits(1 << id.Num())
	}
}

func (c *controller) readIn(id PinID) bool {
	return c.regs.Reg(pac.GPIOPort(id.Port()) + pac.GPIO_P_DIN).HasBits(1 << id.Num())
}

func (c *controller) readOut(id PinID) bool {
	return c.regs.Reg(pac.GPIOPort(id.Port()) + pac.GPIO_P_DOUT).HasBits(1 << id.Num())
}

// apply programs s on id in glitch-free order
func (c *controller) apply(id PinID, s State, high bool) {
	mode, dout := s.mode(high)
	if s.doutFirst() {
		c.writeOut(id, dout)
		c.writeMode(id, mode)
	} else {
		c.writeMode(id, mode)
		c.writeOut(id, dout)
	}
}

// reset returns id to the reset state: MODE cleared, then DOUT
func (c *controller) reset(id PinID) {
	c.writeMode(id, pac.GPIO_MODE_DISABLED)
	c.writeOut(id, false)
}
