package gpio

import (
	"strings"

	"efm32hal/pac"
)

// Route location tables. Each entry lists the pins in location order; "-"
// marks a location on a debug pin, which is never routed.
var locationTables = map[Function]string{
	{pac.USART0, TX}: "PA0-5 PB11-15 PC6-11 PD9-15 - - - - PF4-7",
	{pac.USART0, RX}: "PA1-5 PB11-15 PC6-11 PD9-15 - - - - PF4-7 PA0",
	{pac.USART1, TX}: "PA0-5 PB11-15 PC6-11 PD9-15 - - - - PF4-7",
	{pac.USART1, RX}: "PA1-5 PB11-15 PC6-11 PD9-15 - - - - PF4-7 PA0",
	{pac.USART2, TX}: "PA5-9 PI0-3 PB6-10 - - - PF4-15 PK0-2",
	{pac.USART2, RX}: "PA6-9 PI0-3 PB6-10 - - - PF4-15 PK0-2 PA5",
	{pac.USART3, TX}: "PD8-15 PI2-3 PB6-11 PJ14-15 PC0-5 PF11-15 PK0-2",
	{pac.USART3, RX}: "PD9-15 PI2-3 PB6-11 PJ14-15 PC0-5 PF11-15 PK0-2 PD8",
	{pac.I2C0, SCL}:  "PA1-5 PB11-15 PC6-11 PD9-15 - - - - PF4-7 PA0",
	{pac.I2C0, SDA}:  "PA0-5 PB11-15 PC6-11 PD9-15 - - - - PF4-7",
	{pac.I2C1, SCL}:  "PA7-9 PI2-3 PB6-10 PJ14-15 PC0-5 PC10-11 PF8-15 PK0-2 PA6",
	{pac.I2C1, SDA}:  "PA6-9 PI2-3 PB6-10 PJ14-15 PC0-5 PC10-11 PF8-15 PK0-2",
}

const noPin PinID = 0xFF

// locations is locationTables expanded to one entry per location
var locations = expandTables()

func expandTables() map[Function][]PinID {
	out := make(map[Function][]PinID, len(locationTables))
	for fn, table := range locationTables {
		var pins []PinID
		for _, field := range strings.Fields(table) {
			if field == "-" {
				pins = append(pins, noPin)
				continue
			}
			first, last := field, ""
			if i := strings.IndexByte(field, '-'); i >= 0 {
				first, last = field[:i], field[:2]+field[i+1:]
			}
			start := MustParsePin(first)
			end := start
			if last != "" {
				end = MustParsePin(last)
			}
			for p := start; p <= end; p++ {
				pins = append(pins, p)
			}
		}
		out[fn] = pins
	}
	return out
}

// Location returns the route location of fn on pin p.
func Location(fn Function, p PinID) (uint8, bool) {
	for loc, pin := range locations[fn] {
		if pin == p {
			return uint8(loc), true
		}
	}
	return 0, false
}

// FunctionsOf lists the alternate functions available on p.
func FunctionsOf(p PinID) []Function {
	var out []Function
	for _, per := range []pac.Peripheral{pac.USART0, pac.USART1, pac.USART2, pac.USART3, pac.I2C0, pac.I2C1} {
		for _, sig := range []Signal{TX, RX, SCL, SDA} {
			fn := Function{per, sig}
			if _, ok := Location(fn, p); ok {
				out = append(out, fn)
			}
		}
	}
	return out
}
