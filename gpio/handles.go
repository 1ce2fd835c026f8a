package gpio

import (
	"efm32hal/hal"
	"efm32hal/pac"
)

// Handle is implemented by every pin handle type.
type Handle interface {
	ID() PinID
	State() (State, error)
	pin() ref
}

type ref struct {
	c   *controller
	id  PinID
	gen uint32
}

// ID returns the pin the handle refers to.
func (r ref) ID() PinID { return r.id }

func (r ref) pin() ref { return r }

// State returns the pin configuration. It fails on a stale handle.
func (r ref) State() (State, error) {
	if err := r.check(); err != nil {
		return State{}, err
	}
	return r.c.slots[r.id].state, nil
}

func (r ref) check() error {
	if r.c == nil {
		return hal.PinError(r.id.String(), ErrPinConsumed)
	}
	if r.c.freed {
		return hal.PinError(r.id.String(), ErrPortNotClocked)
	}
	if r.c.slots[r.id].gen != r.gen {
		return hal.PinError(r.id.String(), ErrPinConsumed)
	}
	return nil
}

// advance consumes r and records the new state
func (r ref) advance(s State, loc uint8) ref {
	sl := &r.c.slots[r.id]
	sl.gen++
	sl.state = s
	sl.loc = loc
	hal.RecordEvent(hal.EvtPinTransition, hal.NoPeripheral, uint32(r.id), uint32(s.Kind))
	return ref{c: r.c, id: r.id, gen: sl.gen}
}

func (r ref) transition(s State, high bool) (ref, error) {
	if err := r.check(); err != nil {
		return ref{}, err
	}
	r.c.apply(r.id, s, high)
	return r.advance(s, 0), nil
}

// disable is legal from every state
func (r ref) disable() (Disabled, error) {
	if err := r.check(); err != nil {
		return Disabled{}, err
	}
	r.c.reset(r.id)
	return Disabled{r.advance(State{}, 0)}, nil
}

// Disabled is a pin with its input and output drivers off.
type Disabled struct{ ref }

// Input configures the pin as an input.
func (p Disabled) Input(pull Pull, filter bool) (Input, error) {
	r, err := p.transition(State{Kind: KindInput, Pull: pull, Filter: filter}, false)
	return Input{r}, err
}

// PushPull configures the pin as a push-pull output at the given level.
func (p Disabled) PushPull(high bool) (Output, error) {
	r, err := p.transition(State{Kind: KindOutput, Drive: PushPull}, high)
	return Output{r}, err
}

// OpenDrain configures a wired-AND output with optional pull-up and
// glitch filter.
func (p Disabled) OpenDrain(high, pullUp, filter bool) (Output, error) {
	s := State{Kind: KindOutput, Drive: OpenDrain, Filter: filter}
	if pullUp {
		s.Pull = PullUp
	}
	r, err := p.transition(s, high)
	return Output{r}, err
}

// OpenSource configures a wired-OR output with optional pull-down.
func (p Disabled) OpenSource(high, pullDown bool) (Output, error) {
	s := State{Kind: KindOutput, Drive: OpenSource}
	if pullDown {
		s.Pull = PullDown
	}
	r, err := p.transition(s, high)
	return Output{r}, err
}

// WithPullUp keeps the pin disabled but enables its pull-up.
func (p Disabled) WithPullUp() (Disabled, error) {
	r, err := p.transition(State{Kind: KindDisabled, Pull: PullUp}, false)
	return Disabled{r}, err
}

// Alternate routes the pin to peripheral signal fn. TX pins become push-pull
// outputs idling high, RX pins inputs, SCL and SDA filtered open-drain lines
// idling high.
func (p Disabled) Alternate(fn Function) (Alternate, error) {
	if err := p.check(); err != nil {
		return Alternate{}, err
	}
	loc, ok := Location(fn, p.id)
	if !ok {
		return Alternate{}, hal.PinError(p.id.String(), ErrNoSuchFunction)
	}
	s := State{Kind: KindAlternate, Function: fn}
	high := true
	switch fn.Signal {
	case RX:
		high = false
	case SCL, SDA:
		s.Drive = OpenDrain
		s.Filter = true
	}
	p.c.apply(p.id, s, high)
	return Alternate{p.advance(s, loc)}, nil
}

// Input is a pin configured as an input.
type Input struct{ ref }

// Get returns the input level.
func (p Input) Get() (bool, error) {
	if err := p.check(); err != nil {
		return false, err
	}
	return p.c.readIn(p.id), nil
}

// Disable returns the pin to its reset state.
func (p Input) Disable() (Disabled, error) { return p.disable() }

// Output is a pin configured as an output.
type Output struct{ ref }

// Set drives the pin high or low.
func (p Output) Set(high bool) error {
	if err := p.check(); err != nil {
		return err
	}
	p.c.writeOut(p.id, high)
	return nil
}

// High drives the pin high.
func (p Output) High() error { return p.Set(true) }

// Low drives the pin low.
func (p Output) Low() error { return p.Set(false) }

// Toggle inverts the output level.
func (p Output) Toggle() error {
	if err := p.check(); err != nil {
		return err
	}
	p.c.regs.Reg(pac.GPIOPort(p.id.Port()) + pac.GPIO_P_DOUTTGL).Set(1 << p.id.Num())
	return nil
}

// Get returns the level sensed on the pin.
func (p Output) Get() (bool, error) {
	if err := p.check(); err != nil {
		return false, err
	}
	return p.c.readIn(p.id), nil
}

// IsSetHigh reports whether the output register drives the pin high.
func (p Output) IsSetHigh() (bool, error) {
	if err := p.check(); err != nil {
		return false, err
	}
	return p.c.readOut(p.id), nil
}

// Disable returns the pin to its reset state.
func (p Output) Disable() (Disabled, error) { return p.disable() }

// Alternate is a pin routed to a peripheral signal.
type Alternate struct{ ref }

// Function returns the peripheral signal the pin is routed to.
func (p Alternate) Function() Function {
	if p.check() != nil {
		return Function{}
	}
	return p.c.slots[p.id].state.Function
}

// Location returns the route location of the pin for its function.
func (p Alternate) Location() uint8 {
	if p.check() != nil {
		return 0
	}
	return p.c.slots[p.id].loc
}

// Disable returns the pin to its reset state.
func (p Alternate) Disable() (Disabled, error) { return p.disable() }

// Check verifies that h is current and routed to fn, without consuming it.
func Check(h Handle, fn Function) error {
	r := h.pin()
	if err := r.check(); err != nil {
		return err
	}
	s := r.c.slots[r.id].state
	if s.Kind != KindAlternate || s.Function != fn {
		return hal.PinError(r.id.String(), ErrWrongPinMode)
	}
	return nil
}

// Bind takes over h for a driver: h must be current and routed to fn. The
// caller's handle becomes stale. No registers are written.
func Bind(h Handle, fn Function) (Alternate, error) {
	if err := Check(h, fn); err != nil {
		return Alternate{}, err
	}
	r := h.pin()
	sl := r.c.slots[r.id]
	return Alternate{r.advance(sl.state, sl.loc)}, nil
}
