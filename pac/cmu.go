package pac

import "efm32hal/mmio"

// CMU register offsets
const (
	CMU_CTRL        = 0x000
	CMU_HFRCOCTRL   = 0x010
	CMU_DPLLCTRL    = 0x040
	CMU_DPLLCTRL1   = 0x044
	CMU_OSCENCMD    = 0x060
	CMU_HFCLKSEL    = 0x074
	CMU_LFACLKSEL   = 0x080
	CMU_LFBCLKSEL   = 0x084
	CMU_LFECLKSEL   = 0x088
	CMU_STATUS      = 0x090
	CMU_HFCLKSTATUS = 0x094
	CMU_HFBUSCLKEN0 = 0x0B0
	CMU_HFPERCLKEN0 = 0x0C0
	CMU_LFACLKEN0   = 0x0E0
	CMU_LFBCLKEN0   = 0x0E8
	CMU_LFECLKEN0   = 0x0F0
	CMU_HFPRESC     = 0x100
	CMU_HFCOREPRESC = 0x108
	CMU_HFPERPRESC  = 0x10C
	CMU_HFEXPPRESC  = 0x114
)

// CMU_CTRL bits
const (
	CMU_CTRL_HFPERCLKEN = 1 << 20
)

// CMU_OSCENCMD bits
const (
	CMU_OSCENCMD_HFRCOEN  = 1 << 0
	CMU_OSCENCMD_HFRCODIS = 1 << 1
	CMU_OSCENCMD_HFXOEN   = 1 << 2
	CMU_OSCENCMD_HFXODIS  = 1 << 3
	CMU_OSCENCMD_LFRCOEN  = 1 << 6
	CMU_OSCENCMD_LFRCODIS = 1 << 7
	CMU_OSCENCMD_LFXOEN   = 1 << 8
	CMU_OSCENCMD_LFXODIS  = 1 << 9
	CMU_OSCENCMD_DPLLEN   = 1 << 10
	CMU_OSCENCMD_DPLLDIS  = 1 << 11
)

// CMU_STATUS bits
const (
	CMU_STATUS_HFRCOENS = 1 << 0
	CMU_STATUS_HFRCORDY = 1 << 1
	CMU_STATUS_HFXOENS  = 1 << 2
	CMU_STATUS_HFXORDY  = 1 << 3
	CMU_STATUS_LFRCOENS = 1 << 6
	CMU_STATUS_LFRCORDY = 1 << 7
	CMU_STATUS_LFXOENS  = 1 << 8
	CMU_STATUS_LFXORDY  = 1 << 9
	CMU_STATUS_DPLLENS  = 1 << 24
	CMU_STATUS_DPLLRDY  = 1 << 25
)

// HFCLKSEL / HFCLKSTATUS selector values
const (
	CMU_HFCLKSEL_HFRCO = 1
	CMU_HFCLKSEL_HFXO  = 2
	CMU_HFCLKSEL_LFRCO = 3
	CMU_HFCLKSEL_LFXO  = 4
)

// LFxCLKSEL selector values
const (
	CMU_LFCLKSEL_DISABLED = 0
	CMU_LFCLKSEL_LFRCO    = 1
	CMU_LFCLKSEL_LFXO     = 2
	CMU_LFCLKSEL_ULFRCO   = 4
)

// DPLL reference select values
const (
	CMU_DPLLCTRL_REFSEL_HFXO = 0
	CMU_DPLLCTRL_REFSEL_LFXO = 1
)

// CMU fields
var (
	CMU_HFCLKSEL_HF          = mmio.Field{Offset: CMU_HFCLKSEL, Pos: 0, Width: 3}
	CMU_HFCLKSTATUS_SELECTED = mmio.Field{Offset: CMU_HFCLKSTATUS, Pos: 0, Width: 3}
	CMU_LFACLKSEL_LFA        = mmio.Field{Offset: CMU_LFACLKSEL, Pos: 0, Width: 3}
	CMU_LFBCLKSEL_LFB        = mmio.Field{Offset: CMU_LFBCLKSEL, Pos: 0, Width: 3}
	CMU_LFECLKSEL_LFE        = mmio.Field{Offset: CMU_LFECLKSEL, Pos: 0, Width: 3}
	CMU_HFPRESC_PRESC        = mmio.Field{Offset: CMU_HFPRESC, Pos: 8, Width: 5}
	CMU_HFCOREPRESC_PRESC    = mmio.Field{Offset: CMU_HFCOREPRESC, Pos: 8, Width: 9}
	CMU_HFPERPRESC_PRESC     = mmio.Field{Offset: CMU_HFPERPRESC, Pos: 8, Width: 9}
	CMU_HFEXPPRESC_PRESC     = mmio.Field{Offset: CMU_HFEXPPRESC, Pos: 8, Width: 5}
	CMU_DPLLCTRL_REFSEL      = mmio.Field{Offset: CMU_DPLLCTRL, Pos: 3, Width: 2}
	CMU_DPLLCTRL1_M          = mmio.Field{Offset: CMU_DPLLCTRL1, Pos: 0, Width: 12}
	CMU_DPLLCTRL1_N          = mmio.Field{Offset: CMU_DPLLCTRL1, Pos: 16, Width: 12}
	CMU_HFRCOCTRL_FREQRANGE  = mmio.Field{Offset: CMU_HFRCOCTRL, Pos: 16, Width: 5}
)

// Gate describes the clock enable bit of a peripheral.
type Gate struct {
	Offset uintptr
	Bit    uint8
}

// Mask returns the gate bit mask.
func (g Gate) Mask() uint32 { return 1 << g.Bit }

// HFBUSCLKEN0 gate of the low-energy peripheral interface
var GateLE = Gate{CMU_HFBUSCLKEN0, 0}

var gates = [NumPeripherals]Gate{
	CRYPTO0:   {CMU_HFBUSCLKEN0, 1},
	CRYPTO1:   {CMU_HFBUSCLKEN0, 2},
	GPIO:      {CMU_HFBUSCLKEN0, 3},
	PRS:       {CMU_HFBUSCLKEN0, 4},
	LDMA:      {CMU_HFBUSCLKEN0, 5},
	GPCRC:     {CMU_HFBUSCLKEN0, 6},
	TIMER0:    {CMU_HFPERCLKEN0, 0},
	TIMER1:    {CMU_HFPERCLKEN0, 1},
	WTIMER0:   {CMU_HFPERCLKEN0, 2},
	WTIMER1:   {CMU_HFPERCLKEN0, 3},
	USART0:    {CMU_HFPERCLKEN0, 4},
	USART1:    {CMU_HFPERCLKEN0, 5},
	USART2:    {CMU_HFPERCLKEN0, 6},
	USART3:    {CMU_HFPERCLKEN0, 7},
	I2C0:      {CMU_HFPERCLKEN0, 8},
	I2C1:      {CMU_HFPERCLKEN0, 9},
	ACMP0:     {CMU_HFPERCLKEN0, 10},
	ACMP1:     {CMU_HFPERCLKEN0, 11},
	CRYOTIMER: {CMU_HFPERCLKEN0, 12},
	ADC0:      {CMU_HFPERCLKEN0, 13},
	IDAC0:     {CMU_HFPERCLKEN0, 14},
	VDAC0:     {CMU_HFPERCLKEN0, 15},
	CSEN:      {CMU_HFPERCLKEN0, 16},
	TRNG0:     {CMU_HFPERCLKEN0, 17},
	LETIMER0:  {CMU_LFACLKEN0, 0},
	LEUART0:   {CMU_LFBCLKEN0, 0},
	RTCC:      {CMU_LFECLKEN0, 0},
}

// ClockGate returns the gate of p. The CMU itself has no gate.
func ClockGate(p Peripheral) (Gate, bool) {
	if p == CMU || p >= NumPeripherals {
		return Gate{}, false
	}
	return gates[p], true
}

// IsLowEnergy reports whether p is clocked from a low-frequency branch and
// therefore also needs the LE interface gate.
func IsLowEnergy(p Peripheral) bool {
	return p == LETIMER0 || p == LEUART0 || p == RTCC
}
