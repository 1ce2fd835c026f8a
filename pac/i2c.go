package pac

import "efm32hal/mmio"

// I2C register offsets
const (
	I2C_CTRL      = 0x00
	I2C_CMD       = 0x04
	I2C_STATE     = 0x08
	I2C_STATUS    = 0x0C
	I2C_CLKDIV    = 0x10
	I2C_RXDATA    = 0x1C
	I2C_TXDATA    = 0x2C
	I2C_IF        = 0x34
	I2C_IFC       = 0x3C
	I2C_IEN       = 0x40
	I2C_ROUTEPEN  = 0x44
	I2C_ROUTELOC0 = 0x48
)

// I2C_CTRL bits
const (
	I2C_CTRL_EN = 1 << 0
)

// I2C_CTRL clock low/high ratios
const (
	I2C_CTRL_CLHR_STANDARD   = 0 // 4:4
	I2C_CTRL_CLHR_ASYMMETRIC = 1 // 6:3
	I2C_CTRL_CLHR_FAST       = 2 // 11:6
)

// I2C_CMD bits
const (
	I2C_CMD_START   = 1 << 0
	I2C_CMD_STOP    = 1 << 1
	I2C_CMD_ACK     = 1 << 2
	I2C_CMD_NACK    = 1 << 3
	I2C_CMD_CONT    = 1 << 4
	I2C_CMD_ABORT   = 1 << 5
	I2C_CMD_CLEARTX = 1 << 6
	I2C_CMD_CLEARPC = 1 << 7
)

// I2C_STATE bits
const (
	I2C_STATE_BUSY = 1 << 0
)

// I2C_STATUS bits
const (
	I2C_STATUS_TXBL    = 1 << 7
	I2C_STATUS_RXDATAV = 1 << 8
)

// I2C interrupt flags
const (
	I2C_IF_START   = 1 << 0
	I2C_IF_RSTART  = 1 << 1
	I2C_IF_ADDR    = 1 << 2
	I2C_IF_TXC     = 1 << 3
	I2C_IF_TXBL    = 1 << 4
	I2C_IF_RXDATAV = 1 << 5
	I2C_IF_ACK     = 1 << 6
	I2C_IF_NACK    = 1 << 7
	I2C_IF_MSTOP   = 1 << 8
	I2C_IF_ARBLOST = 1 << 9
	I2C_IF_BUSERR  = 1 << 10

	I2C_IF_MASK = 0x7FFFF
)

// I2C_ROUTEPEN bits
const (
	I2C_ROUTEPEN_SDAPEN = 1 << 0
	I2C_ROUTEPEN_SCLPEN = 1 << 1
)

// I2C fields
var (
	I2C_CTRL_CLHR        = mmio.Field{Offset: I2C_CTRL, Pos: 8, Width: 2}
	I2C_CLKDIV_DIV       = mmio.Field{Offset: I2C_CLKDIV, Pos: 0, Width: 9}
	I2C_ROUTELOC0_SDALOC = mmio.Field{Offset: I2C_ROUTELOC0, Pos: 0, Width: 6}
	I2C_ROUTELOC0_SCLLOC = mmio.Field{Offset: I2C_ROUTELOC0, Pos: 8, Width: 6}
)
