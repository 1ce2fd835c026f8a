package sim

import "efm32hal/pac"

// Timer models the counter of a TIMER or WTIMER instance. Time only moves
// when Advance is called; the prescaler is not modelled, so Advance counts
// prescaled ticks.
type Timer struct {
	bus  *Bus
	base uintptr
	wide bool
}

func newTimer(bus *Bus, p pac.Peripheral) *Timer {
	t := &Timer{bus: bus, base: p.Base(), wide: p.IsWideTimer()}
	top := uint32(0xFFFF)
	if t.wide {
		top = 0xFFFFFFFF
	}
	bus.Poke(t.base+pac.TIMER_TOP, top)
	bus.OnWrite(t.base+pac.TIMER_CMD, t.cmd)
	bus.OnWrite(t.base+pac.TIMER_IFC, func(_, v uint32) uint32 {
		flags := t.base + pac.TIMER_IF
		bus.poke(flags, bus.peek(flags)&^v)
		return 0
	})
	bus.OnWrite(t.base+pac.TIMER_IFS, func(_, v uint32) uint32 {
		flags := t.base + pac.TIMER_IF
		bus.poke(flags, bus.peek(flags)|v)
		return 0
	})
	return t
}

func (t *Timer) cmd(_, v uint32) uint32 {
	status := t.base + pac.TIMER_STATUS
	s := t.bus.peek(status)
	if v&pac.TIMER_CMD_START != 0 {
		s |= pac.TIMER_STATUS_RUNNING
	}
	if v&pac.TIMER_CMD_STOP != 0 {
		s &^= pac.TIMER_STATUS_RUNNING
	}
	t.bus.poke(status, s)
	return 0
}

// Advance runs the counter for ticks prescaled clock cycles.
func (t *Timer) Advance(ticks uint32) {
	t.bus.locked(func() {
		for i := uint32(0); i < ticks; i++ {
			if !t.step() {
				return
			}
		}
	})
}

// step advances one tick and reports whether the timer is still running.
func (t *Timer) step() bool {
	status := t.bus.peek(t.base + pac.TIMER_STATUS)
	if status&pac.TIMER_STATUS_RUNNING == 0 {
		return false
	}
	ctrl := t.bus.peek(t.base + pac.TIMER_CTRL)
	mode := ctrl & pac.TIMER_CTRL_MODE.Mask()
	top := t.bus.peek(t.base + pac.TIMER_TOP)
	cnt := t.bus.peek(t.base + pac.TIMER_CNT)
	down := status&pac.TIMER_STATUS_DIR != 0

	var flag uint32
	switch mode {
	case pac.TIMER_CTRL_MODE_DOWN:
		if cnt == 0 {
			cnt = top
			flag = pac.TIMER_IF_UF
		} else {
			cnt--
		}
	case pac.TIMER_CTRL_MODE_UPDOWN:
		switch {
		case !down && cnt >= top:
			down = true
			cnt--
			flag = pac.TIMER_IF_OF
		case down && cnt == 0:
			down = false
			cnt++
			flag = pac.TIMER_IF_UF
		case down:
			cnt--
		default:
			cnt++
		}
	default:
		if cnt >= top {
			cnt = 0
			flag = pac.TIMER_IF_OF
		} else {
			cnt++
		}
	}

	if down {
		status |= pac.TIMER_STATUS_DIR
	} else {
		status &^= pac.TIMER_STATUS_DIR
	}
	if flag != 0 {
		flags := t.base + pac.TIMER_IF
		t.bus.poke(flags, t.bus.peek(flags)|flag)
		if ctrl&pac.TIMER_CTRL_OSMEN != 0 {
			status &^= pac.TIMER_STATUS_RUNNING
		}
	}
	t.bus.poke(t.base+pac.TIMER_CNT, cnt)
	t.bus.poke(t.base+pac.TIMER_STATUS, status)
	return status&pac.TIMER_STATUS_RUNNING != 0
}

// Count returns the counter value.
func (t *Timer) Count() uint32 {
	return t.bus.Peek(t.base + pac.TIMER_CNT)
}

// Running reports whether the counter is running.
func (t *Timer) Running() bool {
	return t.bus.Peek(t.base+pac.TIMER_STATUS)&pac.TIMER_STATUS_RUNNING != 0
}
