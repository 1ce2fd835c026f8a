//go:build !tinygo

package hal

import "sync"

// State is the saved interrupt state on regular Go
type State uintptr

// critical stands in for masking interrupts when running on a host, where
// the "interrupt context" of tests is just another goroutine.
var critical sync.Mutex

// DisableInterrupts enters a critical section (host build)
func DisableInterrupts() State {
	critical.Lock()
	return 0
}

// RestoreInterrupts leaves the critical section (host build)
func RestoreInterrupts(state State) {
	critical.Unlock()
}
