package si7021

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"tinygo.org/x/drivers/tester"
)

func newSensor(c *qt.C) (*tester.I2CDeviceCmd, Device) {
	bus := tester.NewI2CBus(c)
	dev := tester.NewI2CDeviceCmd(c, Address)
	dev.Commands = map[uint8]*tester.Cmd{
		cmdMeasureRH: {
			Command:  []byte{cmdMeasureRH},
			Mask:     []byte{0xFF},
			Response: []byte{0x66, 0x4C, 0x4F},
		},
		cmdMeasureTemp: {
			Command:  []byte{cmdMeasureTemp},
			Mask:     []byte{0xFF},
			Response: []byte{0x63, 0x90, 0x41},
		},
		cmdTempFromRH: {
			Command:  []byte{cmdTempFromRH},
			Mask:     []byte{0xFF},
			Response: []byte{0x7C, 0x80},
		},
		cmdFirmware1: {
			Command:  []byte{cmdFirmware1, cmdFirmware2},
			Mask:     []byte{0xFF, 0xFF},
			Response: []byte{FirmwareV2},
		},
		cmdReset: {
			Command: []byte{cmdReset},
			Mask:    []byte{0xFF},
		},
	}
	bus.AddDevice(dev)
	return dev, New(bus)
}

func TestReadHumidity(t *testing.T) {
	c := qt.New(t)
	dev, s := newSensor(c)

	rh, err := s.ReadHumidity()
	c.Assert(err, qt.IsNil)
	c.Assert(rh, qt.Equals, int32(4394))
	c.Assert(dev.Commands[cmdMeasureRH].Invocations, qt.Equals, 1)
}

func TestReadTemperature(t *testing.T) {
	c := qt.New(t)
	_, s := newSensor(c)

	temp, err := s.ReadTemperature()
	c.Assert(err, qt.IsNil)
	c.Assert(temp, qt.Equals, int32(21490))
}

func TestReadTemperatureHumidity(t *testing.T) {
	c := qt.New(t)
	dev, s := newSensor(c)

	temp, rh, err := s.ReadTemperatureHumidity()
	c.Assert(err, qt.IsNil)
	c.Assert(rh, qt.Equals, int32(4394))
	c.Assert(temp, qt.Equals, int32(38607))
	c.Assert(dev.Commands[cmdMeasureTemp].Invocations, qt.Equals, 0)
}

func TestChecksumMismatch(t *testing.T) {
	c := qt.New(t)
	dev, s := newSensor(c)
	dev.Commands[cmdMeasureRH].Response = []byte{0x66, 0x4C, 0x00}

	_, err := s.ReadHumidity()
	c.Assert(err, qt.ErrorIs, ErrChecksum)
}

func TestConnectedAndReset(t *testing.T) {
	c := qt.New(t)
	dev, s := newSensor(c)

	c.Assert(s.Connected(), qt.IsTrue)
	c.Assert(s.Reset(), qt.IsNil)
	c.Assert(dev.Commands[cmdReset].Invocations, qt.Equals, 1)

	dev.Commands[cmdFirmware1].Response = []byte{0x42}
	c.Assert(s.Connected(), qt.IsFalse)
}

func TestConversions(t *testing.T) {
	c := qt.New(t)
	c.Assert(humidity(0), qt.Equals, int32(0))
	c.Assert(humidity(0xFFFF), qt.Equals, int32(10000))
	c.Assert(temperature(0), qt.Equals, int32(-46850))
	c.Assert(crc8([]byte{0x66, 0x4C}), qt.Equals, byte(0x4F))
}
