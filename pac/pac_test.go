package pac

import "testing"

func TestPeripheralNames(t *testing.T) {
	for p := Peripheral(0); p < NumPeripherals; p++ {
		name := p.String()
		if name == "" || name == "UNKNOWN" {
			t.Errorf("peripheral %d has no name", p)
			continue
		}
		got, ok := PeripheralByName(name)
		if !ok || got != p {
			t.Errorf("PeripheralByName(%q) = %v, %v", name, got, ok)
		}
		if p.Base() == 0 && p != ACMP0 {
			t.Errorf("%s has no base address", name)
		}
	}
	if NumPeripherals.String() != "UNKNOWN" {
		t.Errorf("out of range peripheral should be UNKNOWN")
	}
}

func TestClockGates(t *testing.T) {
	tests := []struct {
		p      Peripheral
		offset uintptr
		bit    uint8
	}{
		{GPIO, CMU_HFBUSCLKEN0, 3},
		{USART0, CMU_HFPERCLKEN0, 4},
		{I2C1, CMU_HFPERCLKEN0, 9},
		{WTIMER0, CMU_HFPERCLKEN0, 2},
		{LEUART0, CMU_LFBCLKEN0, 0},
	}
	for _, tt := range tests {
		g, ok := ClockGate(tt.p)
		if !ok {
			t.Errorf("%s has no gate", tt.p)
			continue
		}
		if g.Offset != tt.offset || g.Bit != tt.bit {
			t.Errorf("%s gate = %+v, want {%#x %d}", tt.p, g, tt.offset, tt.bit)
		}
	}
	if _, ok := ClockGate(CMU); ok {
		t.Errorf("CMU must not have a gate")
	}
	if !IsLowEnergy(RTCC) || IsLowEnergy(USART0) {
		t.Errorf("IsLowEnergy classification wrong")
	}
}

func TestGPIOModeReg(t *testing.T) {
	off, pos := GPIOModeReg(PortA, 5)
	if off != GPIO_P_MODEL || pos != 20 {
		t.Errorf("PA5 mode = %#x/%d", off, pos)
	}
	off, pos = GPIOModeReg(PortF, 9)
	if off != 5*GPIO_PORT_STRIDE+GPIO_P_MODEH || pos != 4 {
		t.Errorf("PF9 mode = %#x/%d", off, pos)
	}
}

func TestPeripheralClasses(t *testing.T) {
	if !USART3.IsUSART() || I2C0.IsUSART() {
		t.Errorf("IsUSART wrong")
	}
	if !TIMER1.IsTimer() || TIMER1.IsWideTimer() || !WTIMER1.IsWideTimer() {
		t.Errorf("timer classification wrong")
	}
	if !I2C1.IsI2C() {
		t.Errorf("IsI2C wrong")
	}
}
