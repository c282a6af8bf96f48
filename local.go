package percore

import "tinygo.org/x/percore/arch"

// Local is per-core mutable state: a Slots of Cells holding RefCells. Each
// core reads and writes its own value, safely against its own interrupt
// handlers.
type Local[T any] struct {
	slots *Slots[Cell[RefCell[T]]]
}

// NewLocal returns a Local for n cores, each starting out with init.
func NewLocal[T any](id arch.CoreIdentity, n int, init T) *Local[T] {
	return &Local[T]{
		slots: NewSlotsFunc(id, n, func(int) Cell[RefCell[T]] {
			return MakeCell(MakeRefCell(init))
		}),
	}
}

// Borrow mutably borrows the calling core's value.
func (l *Local[T]) Borrow(t Token) RefMut[T] {
	return BorrowMut(l.slots.Get(), t)
}

// Update calls fn with the calling core's value, with exceptions masked.
func (l *Local[T]) Update(fn func(*T)) {
	Free(func(t Token) {
		l.UpdateWith(t, fn)
	})
}

// UpdateWith is like Update for callers that already hold a token.
func (l *Local[T]) UpdateWith(t Token, fn func(*T)) {
	v := l.Borrow(t)
	defer v.Release()
	fn(v.Get())
}

// Load returns a copy of the calling core's value.
func (l *Local[T]) Load() T {
	return Run(func(t Token) T {
		r := l.slots.Get().Borrow(t).Borrow()
		defer r.Release()
		return r.Value()
	})
}

// Len returns the number of cores.
func (l *Local[T]) Len() int {
	return l.slots.Len()
}

// Teardown calls fn with the value of every core and releases them. See
// Slots.Teardown.
func (l *Local[T]) Teardown(fn func(core int, value T)) {
	l.slots.Teardown(func(core int, c *Cell[RefCell[T]]) {
		if fn != nil {
			fn(core, c.value.value)
		}
	})
}
