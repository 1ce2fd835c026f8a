package cmu

import "efm32hal/pac"

// Domain is a node of the clock tree: an oscillator, the DPLL or a derived
// clock branch.
type Domain uint8

// Clock domains
const (
	HFRCO Domain = iota
	HFXO
	LFRCO
	LFXO
	ULFRCO
	DPLL
	HFCLK
	HFBUSCLK
	HFCORECLK
	HFPERCLK
	HFEXPCLK
	LFACLK
	LFBCLK
	LFECLK

	numDomains
)

// None is the source of a domain that has no upstream clock.
const None Domain = 0xFF

func (d Domain) String() string {
	if d < numDomains {
		return specs[d].name
	}
	if d == None {
		return "none"
	}
	return "UNKNOWN"
}

// IsOscillator reports whether d is configured with EnableOscillator.
func (d Domain) IsOscillator() bool {
	return d < numDomains && specs[d].osc
}

// order lists the domains so that every source comes before its consumers
var order = [numDomains]Domain{
	HFXO, LFRCO, LFXO, ULFRCO, DPLL, HFRCO,
	HFCLK, HFBUSCLK, HFCORECLK, HFPERCLK, HFEXPCLK,
	LFACLK, LFBCLK, LFECLK,
}

// HFRCO frequency bands
var hfrcoBands = []uint32{
	1000000, 2000000, 4000000, 7000000, 13000000,
	16000000, 19000000, 26000000, 32000000, 38000000,
}

const (
	hfrcoDefault = 19000000
	lfFrequency  = 32768
	ulfFrequency = 1000
)

type domainSpec struct {
	name    string
	osc     bool
	fixed   bool // cannot be disabled
	sources []Domain
	minMul  uint32
	maxMul  uint32
	minDiv  uint32
	maxDiv  uint32
	minHz   uint32
	maxHz   uint32
}

var lfSources = []Domain{LFRCO, LFXO, ULFRCO}
var hfDerived = []Domain{HFCLK}

var specs = [numDomains]domainSpec{
	HFRCO:  {name: "HFRCO", osc: true, minHz: 1000000, maxHz: 40000000},
	HFXO:   {name: "HFXO", osc: true, minHz: 38000000, maxHz: 40000000},
	LFRCO:  {name: "LFRCO", osc: true, minHz: lfFrequency, maxHz: lfFrequency},
	LFXO:   {name: "LFXO", osc: true, minHz: lfFrequency, maxHz: lfFrequency},
	ULFRCO: {name: "ULFRCO", osc: true, fixed: true, minHz: ulfFrequency, maxHz: ulfFrequency},

	DPLL: {name: "DPLL", sources: []Domain{HFXO, LFXO},
		minMul: 301, maxMul: 4096, minDiv: 1, maxDiv: 4096,
		minHz: 4000000, maxHz: 40000000},

	HFCLK: {name: "HFCLK", fixed: true, sources: []Domain{HFRCO, HFXO, LFRCO, LFXO},
		minMul: 1, maxMul: 1, minDiv: 1, maxDiv: 32,
		minHz: ulfFrequency, maxHz: 40000000},
	HFBUSCLK: {name: "HFBUSCLK", fixed: true, sources: hfDerived,
		minMul: 1, maxMul: 1, minDiv: 1, maxDiv: 1,
		minHz: ulfFrequency, maxHz: 40000000},
	HFCORECLK: {name: "HFCORECLK", fixed: true, sources: hfDerived,
		minMul: 1, maxMul: 1, minDiv: 1, maxDiv: 512,
		minHz: 1, maxHz: 40000000},
	HFPERCLK: {name: "HFPERCLK", sources: hfDerived,
		minMul: 1, maxMul: 1, minDiv: 1, maxDiv: 512,
		minHz: 1, maxHz: 40000000},
	HFEXPCLK: {name: "HFEXPCLK", sources: hfDerived,
		minMul: 1, maxMul: 1, minDiv: 1, maxDiv: 32,
		minHz: 1, maxHz: 40000000},

	LFACLK: {name: "LFACLK", sources: lfSources,
		minMul: 1, maxMul: 1, minDiv: 1, maxDiv: 1,
		minHz: ulfFrequency, maxHz: lfFrequency},
	LFBCLK: {name: "LFBCLK", sources: lfSources,
		minMul: 1, maxMul: 1, minDiv: 1, maxDiv: 1,
		minHz: ulfFrequency, maxHz: lfFrequency},
	LFECLK: {name: "LFECLK", sources: lfSources,
		minMul: 1, maxMul: 1, minDiv: 1, maxDiv: 1,
		minHz: ulfFrequency, maxHz: lfFrequency},
}

func (s *domainSpec) allows(src Domain) bool {
	for _, d := range s.sources {
		if d == src {
			return true
		}
	}
	return false
}

// Domains returns the clock domains governing p. The first one is the
// peripheral's functional clock.
func Domains(p pac.Peripheral) []Domain {
	switch p {
	case pac.LETIMER0:
		return []Domain{LFACLK, HFBUSCLK}
	case pac.LEUART0:
		return []Domain{LFBCLK, HFBUSCLK}
	case pac.RTCC:
		return []Domain{LFECLK, HFBUSCLK}
	}
	g, ok := pac.ClockGate(p)
	if !ok {
		return nil
	}
	if g.Offset == pac.CMU_HFBUSCLKEN0 {
		return []Domain{HFBUSCLK}
	}
	return []Domain{HFPERCLK}
}

func bandIndex(hz uint32) (uint32, bool) {
	for i, b := range hfrcoBands {
		if b == hz {
			return uint32(i), true
		}
	}
	return 0, false
}

// ParseDomain looks up a domain by name, e.g. "HFPERCLK".
func ParseDomain(name string) (Domain, bool) {
	for d := Domain(0); d < numDomains; d++ {
		if specs[d].name == name {
			return d, true
		}
	}
	return None, false
}

// AllDomains returns every domain, sources before their consumers.
func AllDomains() []Domain {
	out := order
	return out[:]
}
