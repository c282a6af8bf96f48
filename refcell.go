package percore

// RefCell provides mutable access to a value through a shared pointer, with
// the borrow rules checked at run time: any number of shared borrows, or a
// single mutable one.
//
// Breaking the rules through Borrow or BorrowMut panics. In a correctly
// masked program that can only happen through re-entrant code on one core,
// such as a function that borrows a cell mutably and then calls something that
// borrows it again.
//
// A RefCell is not safe for concurrent use. Keep it inside a Cell.
type RefCell[T any] struct {
	// Number of active shared borrows, or -1 while mutably borrowed.
	borrows int32
	value   T
}

// MakeRefCell returns a RefCell holding value.
func MakeRefCell[T any](value T) RefCell[T] {
	return RefCell[T]{value: value}
}

// TryBorrow borrows the value for reading. It fails if the value is currently
// mutably borrowed.
func (c *RefCell[T]) TryBorrow() (Ref[T], bool) {
	if c.borrows < 0 {
		return Ref[T]{}, false
	}
	c.borrows++
	return Ref[T]{cell: c}, true
}

// Borrow is like TryBorrow, but panics if the value is mutably borrowed.
func (c *RefCell[T]) Borrow() Ref[T] {
	r, ok := c.TryBorrow()
	if !ok {
		panic("percore: already mutably borrowed")
	}
	return r
}

// TryBorrowMut borrows the value for writing. It fails if the value is
// borrowed in any way.
func (c *RefCell[T]) TryBorrowMut() (RefMut[T], bool) {
	if c.borrows != 0 {
		return RefMut[T]{}, false
	}
	c.borrows = -1
	return RefMut[T]{cell: c}, true
}

// BorrowMut is like TryBorrowMut, but panics if the value is borrowed.
func (c *RefCell[T]) BorrowMut() RefMut[T] {
	m, ok := c.TryBorrowMut()
	if !ok {
		panic("percore: already borrowed")
	}
	return m
}

// Ref is a shared borrow of a RefCell.
type Ref[T any] struct {
	cell *RefCell[T]
}

// Value returns a copy of the borrowed value.
func (r Ref[T]) Value() T {
	if r.cell == nil {
		panic("percore: use of released Ref")
	}
	return r.cell.value
}

// Release ends the borrow.
func (r *Ref[T]) Release() {
	if r.cell == nil || r.cell.borrows <= 0 {
		panic("percore: release of unborrowed Ref")
	}
	r.cell.borrows--
	r.cell = nil
}

// RefMut is a mutable borrow of a RefCell.
type RefMut[T any] struct {
	cell *RefCell[T]
}

// Get returns a pointer to the borrowed value. It must not be used after
// Release.
func (m RefMut[T]) Get() *T {
	if m.cell == nil {
		panic("percore: use of released RefMut")
	}
	return &m.cell.value
}

// Set replaces the borrowed value.
func (m RefMut[T]) Set(value T) {
	*m.Get() = value
}

// Release ends the borrow.
func (m *RefMut[T]) Release() {
	if m.cell == nil || m.cell.borrows != -1 {
		panic("percore: release of unborrowed RefMut")
	}
	m.cell.borrows = 0
	m.cell = nil
}
