//go:build !tinygo

package mmio

// Hardware returns nil on host builds: there is no memory-mapped chip to
// talk to. Use a simulated bus (package sim) instead.
func Hardware() Bus {
	return nil
}
