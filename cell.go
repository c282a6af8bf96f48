package percore

// Cell guards a value so that it can only be reached with a Token, that is,
// while exceptions are masked on the current core. This makes the value safe
// to share between the code running on a core and that core's interrupt
// handlers.
//
// A Cell is not safe to share between cores on its own. Either keep it in a
// Slots, or pair it with a lock (see package spinlock).
//
// The zero value holds the zero value of T. A Cell must not be copied after
// first use.
type Cell[T any] struct {
	value T
}

// NewCell returns a new Cell holding value.
func NewCell[T any](value T) *Cell[T] {
	return &Cell[T]{value: value}
}

// MakeCell returns a Cell holding value, for building arrays and slices of
// cells such as the initial values of a Slots.
func MakeCell[T any](value T) Cell[T] {
	return Cell[T]{value: value}
}

// Borrow returns a pointer to the contents of the cell. It panics if t is not
// a valid token for the calling core. The pointer must not be used after the
// region that minted t has ended.
func (c *Cell[T]) Borrow(t Token) *T {
	t.check()
	return &c.value
}

// BorrowMut borrows the RefCell inside c and mutably borrows its contents.
// Release the returned RefMut before the region that minted t ends.
func BorrowMut[T any](c *Cell[RefCell[T]], t Token) RefMut[T] {
	return c.Borrow(t).BorrowMut()
}
