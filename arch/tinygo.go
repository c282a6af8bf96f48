//go:build tinygo

package arch

import (
	"runtime"
	"runtime/interrupt"
)

// Default returns the platform of the running program: interrupt masking via
// runtime/interrupt and the hardware core ID as reported by the runtime.
func Default() Platform {
	return tinygoPlatform{}
}

type tinygoPlatform struct{}

func (tinygoPlatform) Disable() State {
	return State(interrupt.Disable())
}

func (tinygoPlatform) Restore(state State) {
	interrupt.Restore(interrupt.State(state))
}

func (tinygoPlatform) CoreIndex() int {
	return int(currentCPU())
}

func (tinygoPlatform) NumCores() int {
	return runtime.NumCPU()
}
