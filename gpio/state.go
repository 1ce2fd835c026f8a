package gpio

import (
	"errors"

	"efm32hal/pac"
)

// Reasons carried by hal.PinConfigError
var (
	ErrPinConsumed    = errors.New("pin handle already consumed")
	ErrPortNotClocked = errors.New("port clock not enabled")
	ErrNoSuchFunction = errors.New("alternate function not available on this pin")
	ErrWrongPinMode   = errors.New("pin not in the required mode")
	ErrPinInUse       = errors.New("pin not disabled")
)

// Kind is the configuration class of a pin.
type Kind uint8

const (
	KindDisabled Kind = iota
	KindInput
	KindOutput
	KindAlternate
)

func (k Kind) String() string {
	switch k {
	case KindDisabled:
		return "disabled"
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindAlternate:
		return "alternate"
	}
	return "unknown"
}

// Pull selects the pull resistor.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Drive is the output driver type.
type Drive uint8

const (
	PushPull Drive = iota
	OpenDrain
	OpenSource
)

// Signal is a peripheral signal a pin can be routed to.
type Signal uint8

const (
	SignalNone Signal = iota
	TX
	RX
	SCL
	SDA
)

func (s Signal) String() string {
	switch s {
	case TX:
		return "TX"
	case RX:
		return "RX"
	case SCL:
		return "SCL"
	case SDA:
		return "SDA"
	}
	return "-"
}

// Function is a peripheral signal, e.g. USART0 TX.
type Function struct {
	Peripheral pac.Peripheral
	Signal     Signal
}

func (f Function) String() string {
	return f.Peripheral.String() + "." + f.Signal.String()
}

// State is the full configuration of a pin.
type State struct {
	Kind     Kind
	Pull     Pull
	Filter   bool
	Drive    Drive
	Function Function
}

// mode returns the MODE nibble and DOUT value encoding s with initial output
// level high.
func (s State) mode(high bool) (mode uint32, dout bool) {
	switch {
	case s.Kind == KindInput, s.receives():
		switch s.Pull {
		case PullUp, PullDown:
			if s.Filter {
				return pac.GPIO_MODE_INPUTPULLFILTER, s.Pull == PullUp
			}
			return pac.GPIO_MODE_INPUTPULL, s.Pull == PullUp
		}
		// DOUT enables the glitch filter on a plain input
		return pac.GPIO_MODE_INPUT, s.Filter
	case s.Kind == KindOutput, s.Kind == KindAlternate:
		switch s.Drive {
		case OpenDrain:
			switch {
			case s.Pull == PullUp && s.Filter:
				return pac.GPIO_MODE_WIREDANDPULLUPFILTER, high
			case s.Pull == PullUp:
				return pac.GPIO_MODE_WIREDANDPULLUP, high
			case s.Filter:
				return pac.GPIO_MODE_WIREDANDFILTER, high
			}
			return pac.GPIO_MODE_WIREDAND, high
		case OpenSource:
			if s.Pull == PullDown {
				return pac.GPIO_MODE_WIREDORPULLDOWN, high
			}
			return pac.GPIO_MODE_WIREDOR, high
		}
		return pac.GPIO_MODE_PUSHPULL, high
	}
	// Disabled: DOUT enables the pull-up
	return pac.GPIO_MODE_DISABLED, s.Pull == PullUp
}

// receives reports whether s is an alternate function pin used as input
func (s State) receives() bool {
	return s.Kind == KindAlternate && s.Function.Signal == RX
}

// doutFirst reports whether DOUT must be written before MODE so the pin
// never glitches through the wrong level or pull.
func (s State) doutFirst() bool {
	switch {
	case s.Kind == KindInput, s.receives():
		return s.Pull != PullNone
	case s.Kind == KindOutput, s.Kind == KindAlternate:
		return s.Drive != OpenSource
	}
	return true
}
