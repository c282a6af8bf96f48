//go:build tinygo && scheduler.cores

package arch

import _ "unsafe"

// The runtime reads the hart ID (or equivalent) register. It is the same value
// the scheduler uses to index its own per-core arrays.
//
//go:linkname currentCPU runtime.currentCPU
func currentCPU() uint32
