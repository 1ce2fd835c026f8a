package serial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tarm "github.com/tarm/serial"

	"efm32hal/board"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	assert.Equal(t, "/dev/ttyACM0", cfg.Device)
	assert.Equal(t, 115200, cfg.Baud)
	assert.Equal(t, 100, cfg.ReadTimeout)
}

func TestConfigFor(t *testing.T) {
	p := board.Default()
	p.Console.Baud = 9600
	assert.Equal(t, 9600, ConfigFor("COM3", p).Baud)
	assert.Equal(t, 115200, ConfigFor("COM3", nil).Baud)
}

func TestNativeConfig(t *testing.T) {
	nc := nativeConfig(&Config{Device: "/dev/ttyUSB0", Baud: 57600, ReadTimeout: 250})
	assert.Equal(t, "/dev/ttyUSB0", nc.Name)
	assert.Equal(t, 57600, nc.Baud)
	assert.Equal(t, 250*time.Millisecond, nc.ReadTimeout)
	assert.Equal(t, byte(8), nc.Size)
	assert.Equal(t, tarm.ParityNone, nc.Parity)
	assert.Equal(t, tarm.Stop1, nc.StopBits)
}

func TestOpenRejects(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)
	_, err = Open(&Config{Baud: 115200})
	assert.Error(t, err)
}
