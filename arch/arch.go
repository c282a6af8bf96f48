// Package arch defines the two points where percore depends on the platform:
// finding out which core is running, and masking asynchronous exceptions on
// that core.
//
// A TinyGo build gets an implementation backed by runtime/interrupt. Hosted
// builds get a single-core stand-in (see Uniprocessor); tests that need more
// cores use the simulator in package sim.
package arch

// State is a saved exception mask, as returned by Masker.Disable. Its meaning
// is specific to the platform, it is only ever handed back to Restore.
type State uintptr

// Conventional State values for platforms that model the mask as a single bit.
// Real hardware returns the raw register contents instead.
const (
	Enabled State = 0
	Masked  State = 1
)

// CoreIdentity reports the index of the core executing the call.
//
// Implementations carry a safety obligation that is not checked at run time:
// CoreIndex must return a value in [0, NumCores), different cores must get
// different values, and the value must not change while exceptions are masked
// on the calling core. A wrong answer lets two cores reach the same per-core
// slot.
type CoreIdentity interface {
	CoreIndex() int
}

// Masker masks and restores asynchronous exceptions on the current core.
type Masker interface {
	// Disable masks exceptions and returns the mask state that was active
	// before. Calling it while already masked is allowed.
	Disable() State

	// Restore writes back a state previously returned by Disable.
	Restore(State)
}

// Platform is everything percore needs from the system it runs on.
type Platform interface {
	CoreIdentity
	Masker

	// NumCores returns the number of cores, fixed for the lifetime of the
	// program.
	NumCores() int
}
