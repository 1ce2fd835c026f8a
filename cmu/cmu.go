// Package cmu manages the clock tree of the chip.
//
// The Manager tracks every clock domain (oscillators, the DPLL and the
// derived branches), validates a configuration against the dependency
// table before touching a register, and hands out Leases: a lease is the
// proof that a peripheral's clock gate is open and that its clock chain
// cannot be reconfigured or disabled while the lease is held.
package cmu

import (
	"efm32hal/device"
	"efm32hal/hal"
	"efm32hal/mmio"
	"efm32hal/pac"
)

// DefaultSpin bounds the polls for an oscillator to report ready
const DefaultSpin = 100000

// Config selects the source and scaling of a derived domain. Zero
// Multiplier or Divider means 1.
type Config struct {
	Source     Domain
	Multiplier uint32
	Divider    uint32
}

type domainState struct {
	enabled bool
	source  Domain
	mul     uint32
	div     uint32
	hz      uint32
	band    uint32 // HFRCO band frequency when the DPLL is off
	leases  int
}

// Manager owns the CMU and the clock state of every domain.
type Manager struct {
	tok     *device.CMU
	regs    mmio.Block
	release func()
	domains [numDomains]domainState
	gates   [pac.NumPeripherals]int
	leGate  int
	leases  int

	// Spin bounds oscillator ready polls
	Spin int
}

// New takes the CMU token and returns a manager describing the reset
// state: HFRCO at 19 MHz feeding HFCLK, HFBUSCLK, HFCORECLK and HFPERCLK
// undivided, ULFRCO at 1 kHz, everything else off.
func New(tok *device.CMU) (*Manager, error) {
	regs, release, err := tok.Acquire()
	if err != nil {
		return nil, err
	}
	m := &Manager{tok: tok, regs: regs, release: release, Spin: DefaultSpin}
	for d := range m.domains {
		m.domains[d].source = None
	}
	m.domains[HFRCO] = domainState{enabled: true, source: None, band: hfrcoDefault}
	m.domains[ULFRCO] = domainState{enabled: true, source: None, hz: ulfFrequency}
	for _, d := range []Domain{HFCLK, HFBUSCLK, HFCORECLK, HFPERCLK} {
		src := HFCLK
		if d == HFCLK {
			src = HFRCO
		}
		m.domains[d] = domainState{enabled: true, source: src, mul: 1, div: 1}
	}
	recompute(&m.domains)
	return m, nil
}

// Free returns the CMU token. It fails while leases are outstanding.
func (m *Manager) Free() (*device.CMU, error) {
	if m.leases > 0 {
		return nil, hal.ClockError("CMU", ErrClockInUse)
	}
	m.release()
	return m.tok, nil
}

// Frequency returns the frequency of d in Hz, or 0 if it is disabled.
func (m *Manager) Frequency(d Domain) uint32 {
	if d >= numDomains {
		return 0
	}
	return m.domains[d].hz
}

// IsEnabled reports whether d is running.
func (m *Manager) IsEnabled(d Domain) bool {
	return d < numDomains && m.domains[d].enabled
}

// Source returns the domain feeding d.
func (m *Manager) Source(d Domain) Domain {
	if d >= numDomains {
		return None
	}
	return m.domains[d].source
}

// Config returns the configuration of a derived domain.
func (m *Manager) Config(d Domain) (Config, bool) {
	if d >= numDomains || specs[d].osc || !m.domains[d].enabled {
		return Config{}, false
	}
	s := m.domains[d]
	return Config{Source: s.source, Multiplier: s.mul, Divider: s.div}, true
}

// Leases returns the number of leases held on d, directly or through a
// consumer downstream.
func (m *Manager) Leases(d Domain) int {
	if d >= numDomains {
		return 0
	}
	return m.domains[d].leases
}

// EnableOscillator starts oscillator d at hz. HFRCO takes one of its bands,
// HFXO 38 to 40 MHz, the low-frequency oscillators their fixed frequency
// (hz 0 selects it).
func (m *Manager) EnableOscillator(d Domain, hz uint32) error {
	if !d.IsOscillator() || d == ULFRCO {
		return hal.ClockError(d.String(), ErrNotConfigurable)
	}
	spec := &specs[d]
	if hz == 0 && spec.minHz == spec.maxHz {
		hz = spec.minHz
	}
	if hz < spec.minHz || hz > spec.maxHz {
		return hal.ClockError(d.String(), ErrFrequencyRange)
	}

	cur := m.domains[d]
	next := cur
	next.enabled = true
	if d == HFRCO {
		if _, ok := bandIndex(hz); !ok {
			return hal.ClockError(d.String(), ErrFrequencyRange)
		}
		if m.domains[DPLL].enabled {
			return hal.ClockError(d.String(), ErrClockInUse)
		}
		next.band = hz
	} else {
		next.hz = hz
	}
	if cur.enabled {
		same := cur.hz == hz
		if d == HFRCO {
			same = cur.band == hz
		}
		if same {
			return nil
		}
		if cur.leases > 0 {
			return hal.ClockError(d.String(), ErrClockInUse)
		}
	}

	states, err := m.plan(d, next)
	if err != nil {
		return err
	}

	if d == HFRCO {
		band, _ := bandIndex(hz)
		m.regs.WriteField(pac.CMU_HFRCOCTRL_FREQRANGE, band)
	}
	en, dis, rdy := oscBits(d)
	m.regs.Reg(pac.CMU_OSCENCMD).Set(en)
	status := m.regs.Reg(pac.CMU_STATUS)
	err = hal.Poll(m.Spin, d.String(), "ready", func() error {
		if status.HasBits(rdy) {
			return nil
		}
		return hal.ErrWouldBlock
	})
	if err != nil {
		if !cur.enabled {
			m.regs.Reg(pac.CMU_OSCENCMD).Set(dis)
		}
		return err
	}

	m.commit(states)
	hal.RecordEvent(hal.EvtClockEnable, hal.NoPeripheral, uint32(d), m.domains[d].hz)
	hal.Debug("[CMU] " + d.String() + " on " + hal.Utoa(m.domains[d].hz) + " Hz")
	return nil
}

func oscBits(d Domain) (en, dis, rdy uint32) {
	switch d {
	case HFRCO:
		return pac.CMU_OSCENCMD_HFRCOEN, pac.CMU_OSCENCMD_HFRCODIS, pac.CMU_STATUS_HFRCORDY
	case HFXO:
		return pac.CMU_OSCENCMD_HFXOEN, pac.CMU_OSCENCMD_HFXODIS, pac.CMU_STATUS_HFXORDY
	case LFRCO:
		return pac.CMU_OSCENCMD_LFRCOEN, pac.CMU_OSCENCMD_LFRCODIS, pac.CMU_STATUS_LFRCORDY
	case LFXO:
		return pac.CMU_OSCENCMD_LFXOEN, pac.CMU_OSCENCMD_LFXODIS, pac.CMU_STATUS_LFXORDY
	case DPLL:
		return pac.CMU_OSCENCMD_DPLLEN, pac.CMU_OSCENCMD_DPLLDIS, pac.CMU_STATUS_DPLLRDY
	}
	return 0, 0, 0
}

// Enable configures derived domain d (or the DPLL) and starts it. Every
// check runs before the first register write, so a failed call leaves the
// hardware untouched.
func (m *Manager) Enable(d Domain, cfg Config) error {
	if d >= numDomains || specs[d].osc {
		return hal.ClockError(d.String(), ErrNotConfigurable)
	}
	spec := &specs[d]
	mul, div := cfg.Multiplier, cfg.Divider
	if mul == 0 {
		mul = 1
	}
	if div == 0 {
		div = 1
	}

	if !spec.allows(cfg.Source) {
		return hal.ClockError(d.String(), ErrInvalidSource)
	}
	if mul < spec.minMul || mul > spec.maxMul || div < spec.minDiv || div > spec.maxDiv {
		return hal.ClockError(d.String(), ErrDividerRange)
	}
	if !m.domains[cfg.Source].enabled {
		return hal.ClockError(d.String(), ErrSourceDisabled)
	}

	cur := m.domains[d]
	if cur.enabled && cur.source == cfg.Source && cur.mul == mul && cur.div == div {
		return nil
	}
	if cur.leases > 0 {
		return hal.ClockError(d.String(), ErrClockInUse)
	}
	if d == DPLL {
		if !m.domains[HFRCO].enabled {
			return hal.ClockError(d.String(), ErrSourceDisabled)
		}
		if m.domains[HFRCO].leases > 0 {
			return hal.ClockError(d.String(), ErrClockInUse)
		}
	}

	next := cur
	next.enabled = true
	next.source = cfg.Source
	next.mul = mul
	next.div = div
	states, err := m.plan(d, next)
	if err != nil {
		return err
	}

	if err := m.apply(d, next); err != nil {
		return err
	}
	m.commit(states)
	hal.RecordEvent(hal.EvtClockEnable, hal.NoPeripheral, uint32(d), m.domains[d].hz)
	hal.Debug("[CMU] " + d.String() + " <- " + cfg.Source.String() + " /" + hal.Utoa(div) + " = " + hal.Utoa(m.domains[d].hz) + " Hz")
	return nil
}

// apply writes the registers of derived domain d
func (m *Manager) apply(d Domain, s domainState) error {
	switch d {
	case DPLL:
		ref := uint32(pac.CMU_DPLLCTRL_REFSEL_HFXO)
		if s.source == LFXO {
			ref = pac.CMU_DPLLCTRL_REFSEL_LFXO
		}
		m.regs.WriteField(pac.CMU_DPLLCTRL_REFSEL, ref)
		m.regs.WriteField(pac.CMU_DPLLCTRL1_N, s.mul-1)
		m.regs.WriteField(pac.CMU_DPLLCTRL1_M, s.div-1)
		m.regs.Reg(pac.CMU_OSCENCMD).Set(pac.CMU_OSCENCMD_DPLLEN)
		status := m.regs.Reg(pac.CMU_STATUS)
		err := hal.Poll(m.Spin, "DPLL", "lock", func() error {
			if status.HasBits(pac.CMU_STATUS_DPLLRDY) {
				return nil
			}
			return hal.ErrWouldBlock
		})
		if err != nil {
			m.regs.Reg(pac.CMU_OSCENCMD).Set(pac.CMU_OSCENCMD_DPLLDIS)
		}
		return err
	case HFCLK:
		// Raise the prescaler before switching to a faster source
		m.regs.WriteField(pac.CMU_HFPRESC_PRESC, s.div-1)
		m.regs.Reg(pac.CMU_HFCLKSEL).Set(hfSelect(s.source))
	case HFBUSCLK:
		// Follows HFCLK, nothing to program
	case HFCORECLK:
		m.regs.WriteField(pac.CMU_HFCOREPRESC_PRESC, s.div-1)
	case HFPERCLK:
		m.regs.WriteField(pac.CMU_HFPERPRESC_PRESC, s.div-1)
		m.regs.Reg(pac.CMU_CTRL).SetBits(pac.CMU_CTRL_HFPERCLKEN)
	case HFEXPCLK:
		m.regs.WriteField(pac.CMU_HFEXPPRESC_PRESC, s.div-1)
	case LFACLK:
		m.regs.WriteField(pac.CMU_LFACLKSEL_LFA, lfSelect(s.source))
	case LFBCLK:
		m.regs.WriteField(pac.CMU_LFBCLKSEL_LFB, lfSelect(s.source))
	case LFECLK:
		m.regs.WriteField(pac.CMU_LFECLKSEL_LFE, lfSelect(s.source))
	}
	return nil
}

func hfSelect(src Domain) uint32 {
	switch src {
	case HFXO:
		return pac.CMU_HFCLKSEL_HFXO
	case LFRCO:
		return pac.CMU_HFCLKSEL_LFRCO
	case LFXO:
		return pac.CMU_HFCLKSEL_LFXO
	}
	return pac.CMU_HFCLKSEL_HFRCO
}

func lfSelect(src Domain) uint32 {
	switch src {
	case LFRCO:
		return pac.CMU_LFCLKSEL_LFRCO
	case LFXO:
		return pac.CMU_LFCLKSEL_LFXO
	case ULFRCO:
		return pac.CMU_LFCLKSEL_ULFRCO
	}
	return pac.CMU_LFCLKSEL_DISABLED
}

// Disable stops d. It fails while d feeds a lease or an enabled domain.
func (m *Manager) Disable(d Domain) error {
	if d >= numDomains || specs[d].fixed {
		return hal.ClockError(d.String(), ErrNotConfigurable)
	}
	cur := m.domains[d]
	if !cur.enabled {
		return nil
	}
	if cur.leases > 0 {
		return hal.ClockError(d.String(), ErrClockInUse)
	}
	if d == DPLL && m.domains[HFRCO].leases > 0 {
		return hal.ClockError(d.String(), ErrClockInUse)
	}
	if d == HFRCO && m.domains[DPLL].enabled {
		return hal.ClockError(d.String(), ErrClockInUse)
	}
	for _, x := range order {
		if x != HFRCO && m.domains[x].enabled && m.domains[x].source == d {
			return hal.ClockError(d.String(), ErrClockInUse)
		}
	}

	next := cur
	next.enabled = false
	states, err := m.plan(d, next)
	if err != nil {
		return err
	}

	switch {
	case d.IsOscillator() || d == DPLL:
		_, dis, _ := oscBits(d)
		m.regs.Reg(pac.CMU_OSCENCMD).Set(dis)
	case d == HFPERCLK:
		m.regs.Reg(pac.CMU_CTRL).ClearBits(pac.CMU_CTRL_HFPERCLKEN)
	case d == LFACLK:
		m.regs.WriteField(pac.CMU_LFACLKSEL_LFA, pac.CMU_LFCLKSEL_DISABLED)
	case d == LFBCLK:
		m.regs.WriteField(pac.CMU_LFBCLKSEL_LFB, pac.CMU_LFCLKSEL_DISABLED)
	case d == LFECLK:
		m.regs.WriteField(pac.CMU_LFECLKSEL_LFE, pac.CMU_LFCLKSEL_DISABLED)
	}
	m.commit(states)
	hal.RecordEvent(hal.EvtClockDisable, hal.NoPeripheral, uint32(d), 0)
	hal.Debug("[CMU] " + d.String() + " off")
	return nil
}

// plan returns the clock state after replacing d with next, or the first
// domain whose frequency would fall out of range.
func (m *Manager) plan(d Domain, next domainState) ([numDomains]domainState, error) {
	states := m.domains
	states[d] = next
	recompute(&states)
	for _, x := range order {
		s := &states[x]
		if !s.enabled {
			continue
		}
		if s.hz < specs[x].minHz || s.hz > specs[x].maxHz {
			return states, hal.ClockError(x.String(), ErrFrequencyRange)
		}
	}
	return states, nil
}

func (m *Manager) commit(states [numDomains]domainState) {
	m.domains = states
}

// recompute derives every frequency from its source, in dependency order
func recompute(states *[numDomains]domainState) {
	for _, d := range order {
		s := &states[d]
		if !s.enabled {
			s.hz = 0
			if d == HFRCO {
				s.source = None
			}
			continue
		}
		switch {
		case d == HFRCO:
			if states[DPLL].enabled {
				s.source = DPLL
				s.hz = states[DPLL].hz
			} else {
				s.source = None
				s.hz = s.band
			}
		case specs[d].osc:
			// fixed by EnableOscillator
		default:
			src := states[s.source].hz
			s.hz = uint32(uint64(src) * uint64(s.mul) / uint64(s.div))
		}
	}
}
