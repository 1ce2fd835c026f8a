package pac

import "efm32hal/mmio"

// USART register offsets
const (
	USART_CTRL      = 0x000
	USART_FRAME     = 0x004
	USART_CMD       = 0x00C
	USART_STATUS    = 0x010
	USART_CLKDIV    = 0x014
	USART_RXDATAX   = 0x018
	USART_RXDATA    = 0x01C
	USART_TXDATA    = 0x034
	USART_IF        = 0x040
	USART_IFC       = 0x048
	USART_IEN       = 0x04C
	USART_ROUTEPEN  = 0x074
	USART_ROUTELOC0 = 0x078
)

// USART_CTRL oversampling values
const (
	USART_CTRL_OVS_X16 = 0
	USART_CTRL_OVS_X8  = 1
	USART_CTRL_OVS_X6  = 2
	USART_CTRL_OVS_X4  = 3
)

// USART_FRAME values
const (
	USART_FRAME_DATABITS_EIGHT = 5
	USART_FRAME_DATABITS_NINE  = 6

	USART_FRAME_PARITY_NONE = 0
	USART_FRAME_PARITY_EVEN = 2
	USART_FRAME_PARITY_ODD  = 3

	USART_FRAME_STOPBITS_HALF        = 0
	USART_FRAME_STOPBITS_ONE         = 1
	USART_FRAME_STOPBITS_ONEANDAHALF = 2
	USART_FRAME_STOPBITS_TWO         = 3
)

// USART_CMD bits
const (
	USART_CMD_RXEN    = 1 << 0
	USART_CMD_RXDIS   = 1 << 1
	USART_CMD_TXEN    = 1 << 2
	USART_CMD_TXDIS   = 1 << 3
	USART_CMD_CLEARTX = 1 << 10
	USART_CMD_CLEARRX = 1 << 11
)

// USART_STATUS bits
const (
	USART_STATUS_RXENS   = 1 << 0
	USART_STATUS_TXENS   = 1 << 1
	USART_STATUS_TXC     = 1 << 5
	USART_STATUS_TXBL    = 1 << 6
	USART_STATUS_RXDATAV = 1 << 7
	USART_STATUS_RXFULL  = 1 << 8
	USART_STATUS_TXIDLE  = 1 << 13
)

// USART_RXDATAX bits
const (
	USART_RXDATAX_RXDATA = 0x1FF
	USART_RXDATAX_PERR   = 1 << 14
	USART_RXDATAX_FERR   = 1 << 15
)

// USART interrupt flags
const (
	USART_IF_TXC     = 1 << 0
	USART_IF_TXBL    = 1 << 1
	USART_IF_RXDATAV = 1 << 2
	USART_IF_RXFULL  = 1 << 3
	USART_IF_RXOF    = 1 << 4
)

// USART_ROUTEPEN bits
const (
	USART_ROUTEPEN_RXPEN = 1 << 0
	USART_ROUTEPEN_TXPEN = 1 << 1
)

// USART fields
var (
	USART_CTRL_OVS        = mmio.Field{Offset: USART_CTRL, Pos: 5, Width: 2}
	USART_FRAME_DATABITS  = mmio.Field{Offset: USART_FRAME, Pos: 0, Width: 4}
	USART_FRAME_PARITY    = mmio.Field{Offset: USART_FRAME, Pos: 8, Width: 2}
	USART_FRAME_STOPBITS  = mmio.Field{Offset: USART_FRAME, Pos: 12, Width: 2}
	USART_CLKDIV_DIV      = mmio.Field{Offset: USART_CLKDIV, Pos: 3, Width: 20}
	USART_ROUTELOC0_RXLOC = mmio.Field{Offset: USART_ROUTELOC0, Pos: 0, Width: 6}
	USART_ROUTELOC0_TXLOC = mmio.Field{Offset: USART_ROUTELOC0, Pos: 8, Width: 6}
)
