package cmu

import (
	"efm32hal/hal"
	"efm32hal/pac"
)

// Lease is the guarantee that a peripheral's clock gate is open and its
// clock chain stays configured. Drivers hold it for their lifetime.
type Lease struct {
	m        *Manager
	id       pac.Peripheral
	clock    Domain
	chain    uint32 // bit per domain holding a lease count
	released bool
	bound    bool
}

// EnableClock opens the clock gate of p and returns a lease on it. Every
// domain governing p must be enabled.
func (m *Manager) EnableClock(p pac.Peripheral) (*Lease, error) {
	gate, ok := pac.ClockGate(p)
	if !ok {
		return nil, hal.ClockError(p.String(), ErrNoGate)
	}
	doms := Domains(p)
	for _, d := range doms {
		if !m.domains[d].enabled {
			return nil, hal.ClockError(d.String(), ErrDomainDisabled)
		}
	}

	if m.gates[p] == 0 {
		m.regs.Reg(gate.Offset).SetBits(gate.Mask())
		hal.RecordEvent(hal.EvtGateOpen, uint8(p), 0, 0)
	}
	m.gates[p]++
	if pac.IsLowEnergy(p) {
		if m.leGate == 0 {
			m.regs.Reg(pac.GateLE.Offset).SetBits(pac.GateLE.Mask())
		}
		m.leGate++
	}

	l := &Lease{m: m, id: p, clock: doms[0], chain: m.chainOf(doms)}
	for d := Domain(0); d < numDomains; d++ {
		if l.chain&(1<<d) != 0 {
			m.domains[d].leases++
		}
	}
	m.leases++
	return l, nil
}

// chainOf returns the domains in doms and every domain upstream of them.
func (m *Manager) chainOf(doms []Domain) uint32 {
	var set uint32
	for _, d := range doms {
		for d != None && set&(1<<d) == 0 {
			set |= 1 << d
			d = m.domains[d].source
		}
	}
	return set
}

// Release gives the lease back. The clock gate closes when the last lease
// of the peripheral is released. Releasing twice is a no-op. A lease bound
// to a driver can only be given back by the driver's Free; Release then
// fails with ErrLeaseBound.
func (l *Lease) Release() error {
	if l == nil || l.released {
		return nil
	}
	if l.bound {
		return hal.ClockError(l.id.String(), ErrLeaseBound)
	}
	l.release()
	return nil
}

func (l *Lease) release() {
	if l.released {
		return
	}
	l.released = true
	m := l.m
	for d := Domain(0); d < numDomains; d++ {
		if l.chain&(1<<d) != 0 {
			m.domains[d].leases--
		}
	}
	m.leases--

	if pac.IsLowEnergy(l.id) {
		m.leGate--
		if m.leGate == 0 {
			m.regs.Reg(pac.GateLE.Offset).ClearBits(pac.GateLE.Mask())
		}
	}
	m.gates[l.id]--
	if m.gates[l.id] == 0 {
		gate, _ := pac.ClockGate(l.id)
		m.regs.Reg(gate.Offset).ClearBits(gate.Mask())
		hal.RecordEvent(hal.EvtGateClose, uint8(l.id), 0, 0)
	}
}

// Peripheral returns the peripheral the lease is for.
func (l *Lease) Peripheral() pac.Peripheral { return l.id }

// Clock returns the functional clock domain of the peripheral.
func (l *Lease) Clock() Domain { return l.clock }

// Frequency returns the functional clock frequency, or 0 once released.
func (l *Lease) Frequency() uint32 {
	if l.released {
		return 0
	}
	return l.m.domains[l.clock].hz
}

// Live reports whether the lease has not been released.
func (l *Lease) Live() bool { return l != nil && !l.released }

// Bound reports whether a driver owns the lease.
func (l *Lease) Bound() bool { return l != nil && l.bound }

// Check verifies that lease is live, unbound and was issued for p. Drivers
// call it before anything else in their constructor.
func Check(lease *Lease, p pac.Peripheral) error {
	if lease == nil {
		return hal.ClockError(p.String(), ErrDomainDisabled)
	}
	if lease.released {
		return hal.ClockError(p.String(), ErrLeaseReleased)
	}
	if lease.bound {
		return hal.ClockError(p.String(), ErrLeaseBound)
	}
	if lease.id != p {
		return hal.ClockError(p.String(), ErrLeaseMismatch)
	}
	return nil
}

// Bind makes the caller the only owner of lease. From then on Release
// fails and the returned function is the only way to give the lease back.
// Drivers bind once every other constructor step has succeeded.
func Bind(lease *Lease, p pac.Peripheral) (release func(), err error) {
	if err := Check(lease, p); err != nil {
		return nil, err
	}
	lease.bound = true
	return lease.release, nil
}
