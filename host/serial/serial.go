// Package serial opens the board's console port on the host.
package serial

import (
	"io"

	"efm32hal/board"
)

// Port is an open serial port. Tests substitute an in-memory pipe.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate. The starter kit's VCOM runs at 115200.
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration for the starter kit's VCOM port
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}

// ConfigFor returns a configuration matching the console of board p.
func ConfigFor(device string, p *board.Profile) *Config {
	cfg := DefaultConfig(device)
	if p != nil && p.Console.Baud != 0 {
		cfg.Baud = int(p.Console.Baud)
	}
	return cfg
}
