package sim

import "efm32hal/pac"

// CMU models oscillator enable/ready status and HFCLK selection.
type CMU struct {
	bus   *Bus
	base  uintptr
	stuck uint32 // STATUS ready bits that never come up
}

var oscCommands = []struct {
	en, dis  uint32
	ens, rdy uint32
}{
	{pac.CMU_OSCENCMD_HFRCOEN, pac.CMU_OSCENCMD_HFRCODIS, pac.CMU_STATUS_HFRCOENS, pac.CMU_STATUS_HFRCORDY},
	{pac.CMU_OSCENCMD_HFXOEN, pac.CMU_OSCENCMD_HFXODIS, pac.CMU_STATUS_HFXOENS, pac.CMU_STATUS_HFXORDY},
	{pac.CMU_OSCENCMD_LFRCOEN, pac.CMU_OSCENCMD_LFRCODIS, pac.CMU_STATUS_LFRCOENS, pac.CMU_STATUS_LFRCORDY},
	{pac.CMU_OSCENCMD_LFXOEN, pac.CMU_OSCENCMD_LFXODIS, pac.CMU_STATUS_LFXOENS, pac.CMU_STATUS_LFXORDY},
	{pac.CMU_OSCENCMD_DPLLEN, pac.CMU_OSCENCMD_DPLLDIS, pac.CMU_STATUS_DPLLENS, pac.CMU_STATUS_DPLLRDY},
}

func newCMU(bus *Bus) *CMU {
	m := &CMU{bus: bus, base: pac.CMU.Base()}

	// Reset: HFRCO running and selected for HFCLK
	bus.Poke(m.base+pac.CMU_STATUS, pac.CMU_STATUS_HFRCOENS|pac.CMU_STATUS_HFRCORDY)
	bus.Poke(m.base+pac.CMU_HFCLKSTATUS, pac.CMU_HFCLKSEL_HFRCO)

	bus.OnWrite(m.base+pac.CMU_OSCENCMD, m.oscEnCmd)
	bus.OnWrite(m.base+pac.CMU_HFCLKSEL, m.hfClkSel)
	return m
}

func (m *CMU) oscEnCmd(_, v uint32) uint32 {
	status := m.bus.peek(m.base + pac.CMU_STATUS)
	for _, osc := range oscCommands {
		if v&osc.en != 0 {
			status |= osc.ens | (osc.rdy &^ m.stuck)
		}
		if v&osc.dis != 0 {
			status &^= osc.ens | osc.rdy
		}
	}
	m.bus.poke(m.base+pac.CMU_STATUS, status)
	return 0
}

func (m *CMU) hfClkSel(_, v uint32) uint32 {
	sel := v & pac.CMU_HFCLKSEL_HF.Mask()
	if sel != 0 {
		m.bus.poke(m.base+pac.CMU_HFCLKSTATUS, sel)
	}
	return 0
}

// HoldNotReady makes the oscillator whose STATUS ready bit is rdy never
// report ready, as with a missing crystal.
func (m *CMU) HoldNotReady(rdy uint32) {
	m.bus.locked(func() { m.stuck |= rdy })
}

// Status returns the CMU STATUS register.
func (m *CMU) Status() uint32 {
	return m.bus.Peek(m.base + pac.CMU_STATUS)
}

// HFClockSelected returns the HFCLKSTATUS selector.
func (m *CMU) HFClockSelected() uint32 {
	return m.bus.Peek(m.base+pac.CMU_HFCLKSTATUS) & pac.CMU_HFCLKSTATUS_SELECTED.Mask()
}
