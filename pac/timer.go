package pac

import "efm32hal/mmio"

// TIMER/WTIMER register offsets
const (
	TIMER_CTRL   = 0x00
	TIMER_CMD    = 0x04
	TIMER_STATUS = 0x08
	TIMER_IF     = 0x0C
	TIMER_IFS    = 0x10
	TIMER_IFC    = 0x14
	TIMER_IEN    = 0x18
	TIMER_TOP    = 0x1C
	TIMER_TOPB   = 0x20
	TIMER_CNT    = 0x24
)

// TIMER_CTRL modes
const (
	TIMER_CTRL_MODE_UP     = 0
	TIMER_CTRL_MODE_DOWN   = 1
	TIMER_CTRL_MODE_UPDOWN = 2
	TIMER_CTRL_MODE_QDEC   = 3
)

// TIMER_CTRL bits
const (
	TIMER_CTRL_OSMEN = 1 << 4
)

// TIMER_CMD bits
const (
	TIMER_CMD_START = 1 << 0
	TIMER_CMD_STOP  = 1 << 1
)

// TIMER_STATUS bits
const (
	TIMER_STATUS_RUNNING = 1 << 0
	TIMER_STATUS_DIR     = 1 << 1
)

// TIMER interrupt flags
const (
	TIMER_IF_OF = 1 << 0
	TIMER_IF_UF = 1 << 1
)

// TIMER fields. PRESC holds log2 of the divider (DIV1 = 0 ... DIV1024 = 10).
var (
	TIMER_CTRL_MODE  = mmio.Field{Offset: TIMER_CTRL, Pos: 0, Width: 2}
	TIMER_CTRL_PRESC = mmio.Field{Offset: TIMER_CTRL, Pos: 24, Width: 4}
)
