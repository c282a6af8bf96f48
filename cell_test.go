package percore_test

import (
	"testing"

	"tinygo.org/x/percore"
)

func TestCellBorrow(t *testing.T) {
	m := useMachine(t, 1)
	c := percore.NewCell(10)
	m.AsCore(0, func() {
		percore.Free(func(tok percore.Token) {
			*c.Borrow(tok) += 5
		})
		got := percore.Run(func(tok percore.Token) int {
			return *c.Borrow(tok)
		})
		if got != 15 {
			t.Errorf("cell holds %d, want 15", got)
		}
	})
}

func TestBorrowMutExclusive(t *testing.T) {
	m := useMachine(t, 1)
	c := percore.NewCell(percore.MakeRefCell(0))
	m.AsCore(0, func() {
		percore.Free(func(outer percore.Token) {
			first := percore.BorrowMut(c, outer)
			defer first.Release()

			percore.Free(func(inner percore.Token) {
				expectPanic(t, "already borrowed", func() {
					percore.BorrowMut(c, inner)
				})
			})
			first.Set(3)
		})
		percore.Free(func(tok percore.Token) {
			v := percore.BorrowMut(c, tok)
			defer v.Release()
			if *v.Get() != 3 {
				t.Errorf("value %d, want 3", *v.Get())
			}
		})
	})
}

func TestRefCellRules(t *testing.T) {
	c := percore.MakeRefCell("a")

	r1 := c.Borrow()
	r2, ok := c.TryBorrow()
	if !ok {
		t.Fatal("second shared borrow failed")
	}
	if _, ok := c.TryBorrowMut(); ok {
		t.Error("mutable borrow succeeded while shared borrows exist")
	}
	expectPanic(t, "already borrowed", func() {
		c.BorrowMut()
	})
	if r1.Value() != "a" || r2.Value() != "a" {
		t.Error("shared borrows read the wrong value")
	}
	r1.Release()
	r2.Release()

	m := c.BorrowMut()
	if _, ok := c.TryBorrow(); ok {
		t.Error("shared borrow succeeded while mutably borrowed")
	}
	expectPanic(t, "already mutably borrowed", func() {
		c.Borrow()
	})
	m.Set("b")
	m.Release()

	expectPanic(t, "release of unborrowed RefMut", func() {
		m.Release()
	})
	expectPanic(t, "use of released RefMut", func() {
		m.Get()
	})

	r := c.Borrow()
	if r.Value() != "b" {
		t.Errorf("value %q after Set, want %q", r.Value(), "b")
	}
	r.Release()
	expectPanic(t, "use of released Ref", func() {
		r.Value()
	})
}
