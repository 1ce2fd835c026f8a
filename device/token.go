package device

import (
	"efm32hal/hal"
	"efm32hal/mmio"
	"efm32hal/pac"
)

// Token is the common surface of every ownership token.
type Token interface {
	ID() pac.Peripheral
	Acquire() (mmio.Block, func(), error)
	InUse() bool
}

type token struct {
	id     pac.Peripheral
	bus    mmio.Bus
	inUse  bool
	claims uint32
}

func newToken(id pac.Peripheral, bus mmio.Bus) token {
	return token{id: id, bus: bus}
}

// ID returns the peripheral instance the token owns.
func (t *token) ID() pac.Peripheral { return t.id }

// Acquire hands out the register block together with the function that
// gives it back. Only the holder can release the token; it fails with
// ErrTokenInUse until then.
func (t *token) Acquire() (mmio.Block, func(), error) {
	state := hal.DisableInterrupts()
	defer hal.RestoreInterrupts(state)

	if t.inUse {
		return mmio.Block{}, nil, ErrTokenInUse
	}
	t.inUse = true
	t.claims++
	claim := t.claims
	release := func() {
		state := hal.DisableInterrupts()
		// a stale release from an earlier holder must not free the block
		if t.claims == claim {
			t.inUse = false
		}
		hal.RestoreInterrupts(state)
	}
	return mmio.NewBlock(t.bus, t.id.Base()), release, nil
}

// InUse reports whether the block is currently handed out.
func (t *token) InUse() bool { return t.inUse }

// CMU owns the clock management unit.
type CMU struct{ token }

// GPIO owns the GPIO block (all ports).
type GPIO struct{ token }

// USART owns one USART instance.
type USART struct{ token }

// I2C owns one I2C instance.
type I2C struct{ token }

// Timer owns one TIMER or WTIMER instance.
type Timer struct{ token }

// Peripheral owns an instance that has no dedicated driver.
type Peripheral struct{ token }

var (
	_ Token = (*CMU)(nil)
	_ Token = (*GPIO)(nil)
	_ Token = (*USART)(nil)
	_ Token = (*I2C)(nil)
	_ Token = (*Timer)(nil)
	_ Token = (*Peripheral)(nil)
)
