package percore

import "tinygo.org/x/percore/arch"

// Slots holds one value per core. Get only ever returns the value of the
// calling core; there is no way to reach another core's value through it.
//
// The number of slots is fixed when the Slots is created. Values are usually
// Cells, so that the core's own interrupt handlers are kept out as well.
type Slots[T any] struct {
	id     arch.CoreIdentity
	values []T
}

// NewSlots returns a Slots with one slot per element of values, indexed by
// the core index that id reports. The values are copied. NewSlots panics if
// values is empty.
func NewSlots[T any](id arch.CoreIdentity, values []T) *Slots[T] {
	if len(values) == 0 {
		panic("percore: Slots needs at least one core")
	}
	return &Slots[T]{
		id:     id,
		values: append([]T(nil), values...),
	}
}

// NewSlotsFunc returns a Slots for n cores where slot i holds init(i).
func NewSlotsFunc[T any](id arch.CoreIdentity, n int, init func(core int) T) *Slots[T] {
	if n <= 0 {
		panic("percore: Slots needs at least one core")
	}
	values := make([]T, n)
	for i := range values {
		values[i] = init(i)
	}
	return &Slots[T]{id: id, values: values}
}

// NewSlotsDefault returns a Slots for n cores, each slot holding the zero
// value of T.
func NewSlotsDefault[T any](id arch.CoreIdentity, n int) *Slots[T] {
	if n <= 0 {
		panic("percore: Slots needs at least one core")
	}
	return &Slots[T]{id: id, values: make([]T, n)}
}

// Len returns the number of slots.
func (s *Slots[T]) Len() int {
	return len(s.values)
}

// Get returns a pointer to the slot of the calling core.
//
// The core index is only stable while exceptions are masked (on platforms
// where code can move between cores), so call Get inside Free and do not keep
// the pointer beyond it.
//
// An index outside the slots means the platform's CoreIdentity is broken.
// That is not recoverable, and Get panics.
func (s *Slots[T]) Get() *T {
	if s.values == nil {
		panic("percore: Slots used after Teardown")
	}
	core := s.id.CoreIndex()
	if uint(core) >= uint(len(s.values)) {
		panic(coreOutOfRange(core, len(s.values)))
	}
	return &s.values[core]
}

// Teardown calls fn for every slot in core order and then releases them.
// Further calls to Get panic.
//
// Teardown must only be called once no core uses s anymore, for example at
// the end of a hosted test after all simulated cores have stopped.
func (s *Slots[T]) Teardown(fn func(core int, value *T)) {
	values := s.values
	s.values = nil
	if fn == nil {
		return
	}
	for i := range values {
		fn(i, &values[i])
	}
}
