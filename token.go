package percore

import (
	"strconv"

	"tinygo.org/x/percore/arch"
)

// A Token proves that exceptions are masked on the core that holds it. It is
// minted by Free and Run and is only valid until the outermost of those calls
// on that core returns.
//
// The zero Token is never valid. Tokens must not be stored, sent to other
// goroutines or returned out of the function they were handed to.
//
// A Token is not free: it is two 32-bit words, the core and the region it was
// minted in, and every borrow compares them against the calling core.
type Token struct {
	core uint32
	gen  uint32
}

// Per-core bookkeeping of masked regions. An entry is only touched by its own
// core while exceptions are masked on it.
type region struct {
	depth uint32
	// Incremented each time an outermost region begins, so tokens of earlier
	// regions can be told apart. Zero is never used.
	gen uint32
}

var (
	platform arch.Platform
	regions  []region
)

func init() {
	Use(arch.Default())
}

// Use installs the platform that Free and Run mask exceptions with. It returns
// the previously installed platform.
//
// Use must only be called while no core is inside a masked region; hosted
// tests call it to switch to a simulated machine. It is not synchronized: it
// must not run concurrently with any Free, Run or Token.Valid.
//
// Use panics if p has no cores.
func Use(p arch.Platform) arch.Platform {
	if p.NumCores() < 1 {
		panic("percore: platform has no cores")
	}
	for i := range regions {
		if regions[i].depth != 0 {
			panic("percore: Use called while core " + strconv.Itoa(i) + " is in a masked region")
		}
	}
	prev := platform
	platform = p
	regions = make([]region, p.NumCores())
	return prev
}

// Platform returns the currently installed platform.
func Platform() arch.Platform {
	return platform
}

// Masked reports whether the current core is inside a Free or Run call.
func Masked() bool {
	return currentRegion(platform).depth > 0
}

func currentRegion(p arch.Platform) *region {
	core := p.CoreIndex()
	if uint(core) >= uint(len(regions)) {
		panic(coreOutOfRange(core, len(regions)))
	}
	return &regions[core]
}

func coreOutOfRange(core, n int) string {
	return "percore: core index " + strconv.Itoa(core) + " out of range [0, " + strconv.Itoa(n) + ")"
}

// Core returns the index of the core the token was minted on.
func (t Token) Core() int {
	return int(t.core)
}

// Valid reports whether the token may be used by the caller: it was minted on
// the calling core and the region it was minted in is still active.
func (t Token) Valid() bool {
	if t.gen == 0 {
		return false
	}
	core := platform.CoreIndex()
	if core != int(t.core) || uint(core) >= uint(len(regions)) {
		return false
	}
	r := &regions[core]
	return r.depth > 0 && r.gen == t.gen
}

// check panics unless the token is valid.
func (t Token) check() {
	if t.gen == 0 {
		panic("percore: invalid token: zero Token")
	}
	if !t.Valid() {
		panic("percore: invalid token: minted on core " + strconv.Itoa(int(t.core)) + " by a region that is no longer active here")
	}
}
