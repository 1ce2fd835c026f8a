package pac

// GPIO port register offsets, relative to the port's base
const (
	GPIO_P_CTRL     = 0x00
	GPIO_P_MODEL    = 0x04
	GPIO_P_MODEH    = 0x08
	GPIO_P_DOUT     = 0x0C
	GPIO_P_DOUTTGL  = 0x18
	GPIO_P_DIN      = 0x1C
	GPIO_P_PINLOCKN = 0x20

	// GPIO_PORT_STRIDE is the distance between two port register sets
	GPIO_PORT_STRIDE = 0x30
)

// Ports in register order
const (
	PortA = 0
	PortB = 1
	PortC = 2
	PortD = 3
	PortE = 4
	PortF = 5
	PortG = 6
	PortH = 7
	PortI = 8
	PortJ = 9
	PortK = 10

	NumPorts = 11
)

// GPIO pin modes, one 4-bit nibble per pin in MODEL/MODEH
const (
	GPIO_MODE_DISABLED             = 0x0
	GPIO_MODE_INPUT                = 0x1
	GPIO_MODE_INPUTPULL            = 0x2
	GPIO_MODE_INPUTPULLFILTER      = 0x3
	GPIO_MODE_PUSHPULL             = 0x4
	GPIO_MODE_PUSHPULLALT          = 0x5
	GPIO_MODE_WIREDOR              = 0x6
	GPIO_MODE_WIREDORPULLDOWN      = 0x7
	GPIO_MODE_WIREDAND             = 0x8
	GPIO_MODE_WIREDANDFILTER       = 0x9
	GPIO_MODE_WIREDANDPULLUP       = 0xA
	GPIO_MODE_WIREDANDPULLUPFILTER = 0xB

	GPIO_MODE_MASK = 0xF
)

// GPIOPort returns the register offset of port within the GPIO block.
func GPIOPort(port uint8) uintptr {
	return uintptr(port) * GPIO_PORT_STRIDE
}

// GPIOModeReg returns the MODEL or MODEH offset and nibble position of pin.
func GPIOModeReg(port, pin uint8) (uintptr, uint8) {
	if pin < 8 {
		return GPIOPort(port) + GPIO_P_MODEL, pin * 4
	}
	return GPIOPort(port) + GPIO_P_MODEH, (pin - 8) * 4
}
