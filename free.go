package percore

import "tinygo.org/x/percore/arch"

// Free masks exceptions on the current core, calls work with a Token proving
// it, and then restores the mask state that was active before the call.
//
// The previous state is restored even if work panics, after which the panic
// continues. Free may be nested: an inner call sees exceptions already masked
// and leaves them masked when it returns.
//
// Masking only holds off interrupts on the current core. It does not exclude
// other cores.
func Free(work func(Token)) {
	f := enter()
	defer f.exit()
	work(f.token)
}

// Run is like Free, but returns the result of work.
func Run[R any](work func(Token) R) R {
	f := enter()
	defer f.exit()
	return work(f.token)
}

// frame is the state of one Free or Run call.
type frame struct {
	p     arch.Platform
	r     *region
	prev  arch.State
	token Token
}

func enter() frame {
	p := platform
	prev := p.Disable()

	// The core index is only guaranteed to be stable from here on.
	core := p.CoreIndex()
	if uint(core) >= uint(len(regions)) {
		p.Restore(prev)
		panic(coreOutOfRange(core, len(regions)))
	}
	r := &regions[core]
	if r.depth == 0 {
		r.gen++
		if r.gen == 0 {
			r.gen = 1
		}
	}
	r.depth++
	return frame{
		p:     p,
		r:     r,
		prev:  prev,
		token: Token{core: uint32(core), gen: r.gen},
	}
}

func (f *frame) exit() {
	f.r.depth--
	f.p.Restore(f.prev)
}
