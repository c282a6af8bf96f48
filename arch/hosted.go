//go:build !tinygo

package arch

import "sync/atomic"

// Uniprocessor is a single-core platform for hosted builds. Nothing
// asynchronously interrupts a hosted Go program, so the mask only has to be
// tracked, not enforced.
type Uniprocessor struct {
	masked atomic.Bool
}

var uniprocessor Uniprocessor

// Default returns the shared Uniprocessor. Hosted programs that need several
// cores install a simulated machine with percore.Use instead.
func Default() Platform {
	return &uniprocessor
}

func (u *Uniprocessor) CoreIndex() int {
	return 0
}

func (u *Uniprocessor) NumCores() int {
	return 1
}

func (u *Uniprocessor) Disable() State {
	if u.masked.Swap(true) {
		return Masked
	}
	return Enabled
}

func (u *Uniprocessor) Restore(state State) {
	u.masked.Store(state == Masked)
}

// Masked reports whether exceptions are currently masked.
func (u *Uniprocessor) Masked() bool {
	return u.masked.Load()
}
