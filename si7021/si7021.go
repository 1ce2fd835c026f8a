// Package si7021 reads the Si7021 relative humidity and temperature sensor
// fitted to the SLSTK3402A.
//
// Datasheet: https://www.silabs.com/documents/public/data-sheets/Si7021-A20.pdf
package si7021

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Address is the fixed bus address of the sensor.
const Address = 0x40

const (
	cmdMeasureRH   = 0xE5 // hold master mode
	cmdMeasureTemp = 0xE3
	cmdTempFromRH  = 0xE0
	cmdReset       = 0xFE
	cmdFirmware1   = 0x84
	cmdFirmware2   = 0xB8
)

// Firmware revisions reported by the sensor
const (
	FirmwareV1 = 0xFF
	FirmwareV2 = 0x20
)

var ErrChecksum = errors.New("si7021: checksum mismatch")

// Device wraps an I2C connection to a Si7021.
type Device struct {
	bus     drivers.I2C
	Address uint16
	buf     [3]byte
}

// New creates a new Si7021 connection. The I2C bus must already be
// configured.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Reset performs a soft reset.
func (d *Device) Reset() error {
	d.buf[0] = cmdReset
	return d.bus.Tx(d.Address, d.buf[:1], nil)
}

// FirmwareRevision returns FirmwareV1 or FirmwareV2.
func (d *Device) FirmwareRevision() (uint8, error) {
	d.buf[0] = cmdFirmware1
	d.buf[1] = cmdFirmware2
	if err := d.bus.Tx(d.Address, d.buf[:2], d.buf[2:3]); err != nil {
		return 0, err
	}
	return d.buf[2], nil
}

// Connected returns whether a Si7021 answers at the address.
func (d *Device) Connected() bool {
	rev, err := d.FirmwareRevision()
	return err == nil && (rev == FirmwareV1 || rev == FirmwareV2)
}

// ReadHumidity returns the relative humidity in hundredths of a percent.
func (d *Device) ReadHumidity() (int32, error) {
	raw, err := d.measure(cmdMeasureRH)
	if err != nil {
		return 0, err
	}
	return humidity(raw), nil
}

// ReadTemperature returns the temperature in celsius milli degrees.
func (d *Device) ReadTemperature() (int32, error) {
	raw, err := d.measure(cmdMeasureTemp)
	if err != nil {
		return 0, err
	}
	return temperature(raw), nil
}

// ReadTemperatureHumidity measures humidity and then reads the temperature
// taken during that conversion, which saves a second measurement.
func (d *Device) ReadTemperatureHumidity() (tempMilliCelsius int32, relHumidity int32, err error) {
	raw, err := d.measure(cmdMeasureRH)
	if err != nil {
		return 0, 0, err
	}
	relHumidity = humidity(raw)

	// no checksum on this read
	d.buf[0] = cmdTempFromRH
	if err := d.bus.Tx(d.Address, d.buf[:1], d.buf[1:3]); err != nil {
		return 0, 0, err
	}
	return temperature(uint16(d.buf[1])<<8 | uint16(d.buf[2])), relHumidity, nil
}

func (d *Device) measure(cmd byte) (uint16, error) {
	d.buf[0] = cmd
	if err := d.bus.Tx(d.Address, d.buf[:1], d.buf[:3]); err != nil {
		return 0, err
	}
	if crc8(d.buf[:2]) != d.buf[2] {
		return 0, ErrChecksum
	}
	return uint16(d.buf[0])<<8 | uint16(d.buf[1]), nil
}

func humidity(raw uint16) int32 {
	rh := int32((12500*uint32(raw))>>16) - 600
	// the conversion can leave the 0-100 % range slightly
	if rh < 0 {
		return 0
	}
	if rh > 10000 {
		return 10000
	}
	return rh
}

func temperature(raw uint16) int32 {
	return int32((175720*uint64(raw))>>16) - 46850
}

// crc8 is the x^8+x^5+x^4+1 checksum the sensor appends.
func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
