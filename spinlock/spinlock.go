// Package spinlock provides a lock for sharing a value between cores from
// code that runs with exceptions masked.
//
// A blocking mutex cannot be used with exceptions masked: the core would wait
// with interrupts off for a holder that might itself be waiting on this core.
// A spinlock never sleeps, and because Lock requires a percore.Token it can
// only be taken inside a masked region. An interrupt handler on the same core
// can therefore never find the lock held by the code it interrupted.
//
// Keep the locked sections short: interrupts raised on a core while it spins
// stay pending until the region ends.
package spinlock

import (
	"sync/atomic"

	"tinygo.org/x/percore"
)

// Mutex is a spinlock. The zero value is unlocked.
type Mutex struct {
	state atomic.Uint32
}

// Lock acquires the lock, spinning until it is available.
func (l *Mutex) Lock(t percore.Token) {
	if !t.Valid() {
		panic("spinlock: Lock without a valid token")
	}
	// Try to replace 0 with 1. Once we succeed, the lock has been acquired.
	for !l.state.CompareAndSwap(0, 1) {
		spinLoopHint()
	}
}

// TryLock tries to acquire the lock without spinning and reports whether it
// succeeded.
func (l *Mutex) TryLock(t percore.Token) bool {
	if !t.Valid() {
		panic("spinlock: TryLock without a valid token")
	}
	return l.state.CompareAndSwap(0, 1)
}

// Unlock releases the lock. It panics if the lock is not held.
func (l *Mutex) Unlock() {
	if !l.state.CompareAndSwap(1, 0) {
		panic("spinlock: unlock of unlocked Mutex")
	}
}

// Shared is a value shared between cores. It is a percore.Cell paired with a
// Mutex, so access needs both a token and the lock.
type Shared[T any] struct {
	lock Mutex
	cell percore.Cell[T]
}

// NewShared returns a Shared holding value.
func NewShared[T any](value T) *Shared[T] {
	return &Shared[T]{cell: percore.MakeCell(value)}
}

// With locks s, calls fn with a pointer to the value and unlocks again, also
// if fn panics. The pointer must not be used after fn returns.
func (s *Shared[T]) With(t percore.Token, fn func(*T)) {
	s.lock.Lock(t)
	defer s.lock.Unlock()
	fn(s.cell.Borrow(t))
}

// Update masks exceptions and then calls With.
func (s *Shared[T]) Update(fn func(*T)) {
	percore.Free(func(t percore.Token) {
		s.With(t, fn)
	})
}

// Load returns a copy of the value.
func (s *Shared[T]) Load() T {
	return percore.Run(func(t percore.Token) T {
		var v T
		s.With(t, func(p *T) {
			v = *p
		})
		return v
	})
}
