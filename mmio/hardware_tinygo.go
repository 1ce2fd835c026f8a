//go:build tinygo

package mmio

import (
	"runtime/volatile"
	"unsafe"
)

type hardwareBus struct{}

func (hardwareBus) Load(addr uintptr) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

func (hardwareBus) Store(addr uintptr, v uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(addr)), v)
}

func (hardwareBus) SetBits(addr uintptr, mask uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(addr+SetAliasOffset)), mask)
}

func (hardwareBus) ClearBits(addr uintptr, mask uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(addr+ClearAliasOffset)), mask)
}

var hardware Bus = hardwareBus{}

// Hardware returns the memory-mapped peripheral bus of the running chip.
func Hardware() Bus {
	return hardware
}
