// Package pac holds the EFM32PG12 register map: peripheral instances, base
// addresses, register offsets and bit fields. The values mirror the vendor
// device headers and are read-only.
package pac

// Peripheral identifies one physical peripheral instance.
type Peripheral uint8

// Peripheral instances
const (
	CMU Peripheral = iota
	GPIO
	USART0
	USART1
	USART2
	USART3
	I2C0
	I2C1
	TIMER0
	TIMER1
	WTIMER0
	WTIMER1
	LEUART0
	LETIMER0
	RTCC
	CRYOTIMER
	ADC0
	IDAC0
	VDAC0
	ACMP0
	ACMP1
	CSEN
	TRNG0
	PRS
	LDMA
	GPCRC
	CRYPTO0
	CRYPTO1

	NumPeripherals
)

var peripheralNames = [NumPeripherals]string{
	CMU:       "CMU",
	GPIO:      "GPIO",
	USART0:    "USART0",
	USART1:    "USART1",
	USART2:    "USART2",
	USART3:    "USART3",
	I2C0:      "I2C0",
	I2C1:      "I2C1",
	TIMER0:    "TIMER0",
	TIMER1:    "TIMER1",
	WTIMER0:   "WTIMER0",
	WTIMER1:   "WTIMER1",
	LEUART0:   "LEUART0",
	LETIMER0:  "LETIMER0",
	RTCC:      "RTCC",
	CRYOTIMER: "CRYOTIMER",
	ADC0:      "ADC0",
	IDAC0:     "IDAC0",
	VDAC0:     "VDAC0",
	ACMP0:     "ACMP0",
	ACMP1:     "ACMP1",
	CSEN:      "CSEN",
	TRNG0:     "TRNG0",
	PRS:       "PRS",
	LDMA:      "LDMA",
	GPCRC:     "GPCRC",
	CRYPTO0:   "CRYPTO0",
	CRYPTO1:   "CRYPTO1",
}

func (p Peripheral) String() string {
	if p < NumPeripherals {
		return peripheralNames[p]
	}
	return "UNKNOWN"
}

var baseAddresses = [NumPeripherals]uintptr{
	CMU:       0x400E4000,
	GPIO:      0x4000A000,
	USART0:    0x40010000,
	USART1:    0x40010400,
	USART2:    0x40010800,
	USART3:    0x40010C00,
	I2C0:      0x4000C000,
	I2C1:      0x4000C400,
	TIMER0:    0x40018000,
	TIMER1:    0x40018400,
	WTIMER0:   0x4001A000,
	WTIMER1:   0x4001A400,
	LEUART0:   0x4004A000,
	LETIMER0:  0x40046000,
	RTCC:      0x40042000,
	CRYOTIMER: 0x4001E000,
	ADC0:      0x40002000,
	IDAC0:     0x40006000,
	VDAC0:     0x40008000,
	ACMP0:     0x40000000,
	ACMP1:     0x40000400,
	CSEN:      0x4001F000,
	TRNG0:     0x4001D000,
	PRS:       0x400E6000,
	LDMA:      0x400E2000,
	GPCRC:     0x4001C000,
	CRYPTO0:   0x400F0000,
	CRYPTO1:   0x400F0400,
}

// Base returns the register block base address of p.
func (p Peripheral) Base() uintptr {
	if p < NumPeripherals {
		return baseAddresses[p]
	}
	return 0
}

// IsUSART reports whether p is one of USART0..USART3.
func (p Peripheral) IsUSART() bool { return p >= USART0 && p <= USART3 }

// IsI2C reports whether p is I2C0 or I2C1.
func (p Peripheral) IsI2C() bool { return p == I2C0 || p == I2C1 }

// IsTimer reports whether p is a TIMER or WTIMER instance.
func (p Peripheral) IsTimer() bool { return p >= TIMER0 && p <= WTIMER1 }

// IsWideTimer reports whether p is a 32-bit WTIMER instance.
func (p Peripheral) IsWideTimer() bool { return p == WTIMER0 || p == WTIMER1 }

// PeripheralByName looks up an instance by its name, e.g. "USART0".
func PeripheralByName(name string) (Peripheral, bool) {
	for i, n := range peripheralNames {
		if n == name {
			return Peripheral(i), true
		}
	}
	return 0, false
}
