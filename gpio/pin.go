package gpio

import (
	"errors"

	"efm32hal/pac"
)

var ErrBadPinName = errors.New("invalid pin name")

// PinID identifies a pin as port*16 + number.
type PinID uint8

// Pin returns the ID of pin num on port.
func Pin(port, num uint8) PinID {
	return PinID(port<<4 | num&0xF)
}

// Port returns the port index (pac.PortA...).
func (p PinID) Port() uint8 { return uint8(p) >> 4 }

// Num returns the pin number within its port.
func (p PinID) Num() uint8 { return uint8(p) & 0xF }

func (p PinID) String() string {
	num := p.Num()
	s := "P" + string(rune('A'+p.Port()))
	if num >= 10 {
		return s + string(rune('0'+num/10)) + string(rune('0'+num%10))
	}
	return s + string(rune('0'+num))
}

// ParsePin parses a pin name such as "PA0" or "PF15".
func ParsePin(s string) (PinID, error) {
	if len(s) < 3 || len(s) > 4 || s[0] != 'P' {
		return 0, ErrBadPinName
	}
	port := s[1]
	if port < 'A' || port >= 'A'+pac.NumPorts {
		return 0, ErrBadPinName
	}
	var num uint8
	for i := 2; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, ErrBadPinName
		}
		num = num*10 + (c - '0')
	}
	if num > 15 || (len(s) == 4 && s[2] == '0') {
		return 0, ErrBadPinName
	}
	return Pin(port-'A', num), nil
}

// MustParsePin is ParsePin for static pin names; it panics on a bad name.
func MustParsePin(s string) PinID {
	p, err := ParsePin(s)
	if err != nil {
		panic("gpio: bad pin name " + s)
	}
	return p
}

// supported lists the pins the package hands out. PF0-PF3 carry the debug
// port and are left alone.
var supportedRanges = []struct {
	port       uint8
	first, end uint8
}{
	{pac.PortA, 0, 9},
	{pac.PortB, 6, 15},
	{pac.PortC, 0, 11},
	{pac.PortD, 8, 15},
	{pac.PortF, 4, 15},
	{pac.PortI, 0, 3},
	{pac.PortJ, 14, 15},
	{pac.PortK, 0, 2},
}

// Supported reports whether p exists on the package and is handed out by
// Split.
func Supported(p PinID) bool {
	for _, r := range supportedRanges {
		if p.Port() == r.port && p.Num() >= r.first && p.Num() <= r.end {
			return true
		}
	}
	return false
}

// SupportedPins returns every pin handed out by Split, in port order.
func SupportedPins() []PinID {
	var out []PinID
	for _, r := range supportedRanges {
		for n := r.first; n <= r.end; n++ {
			out = append(out, Pin(r.port, n))
		}
	}
	return out
}
