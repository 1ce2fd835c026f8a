//go:build tinygo

// Firmware for the SLSTK3402A starter kit: brings the board up from the
// built-in profile and serves the console shell on the VCOM port.
package main

import (
	"runtime"

	"efm32hal/app"
	"efm32hal/board"
	"efm32hal/device"
	"efm32hal/hal"
)

func main() {
	dev, err := device.TakeHardware()
	if err != nil {
		halt("take hardware: " + err.Error())
	}
	per, err := dev.Split()
	if err != nil {
		halt("split: " + err.Error())
	}

	a, err := app.New(per, board.Default())
	if err != nil {
		halt("bring-up: " + err.Error())
	}
	hal.InitAsyncDebug()
	a.Banner()
	for {
		a.Poll()
		// lets the debug output goroutine run
		runtime.Gosched()
	}
}

// halt records the failure and parks the core. The event ring survives for
// a debugger to read.
func halt(msg string) {
	hal.Debug("[MAIN] " + msg)
	hal.DumpEvents()
	for {
	}
}
