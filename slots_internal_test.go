package percore

import (
	"testing"

	"tinygo.org/x/percore/sim"
)

func TestSlotsWriteOnOneCore(t *testing.T) {
	m := sim.New(2)
	prev := Use(m)
	defer Use(prev)

	s := NewSlots(m, []Cell[RefCell[int]]{
		MakeCell(MakeRefCell(0)),
		MakeCell(MakeRefCell(0)),
	})
	m.AsCore(0, func() {
		Free(func(tok Token) {
			v := BorrowMut(s.Get(), tok)
			defer v.Release()
			*v.Get() = 42
		})
	})

	// Read the slots directly, with no core running.
	got := []int{s.values[0].value.value, s.values[1].value.value}
	if got[0] != 42 || got[1] != 0 {
		t.Errorf("slots = %v, want [42 0]", got)
	}
	for i := range s.values {
		if b := s.values[i].value.borrows; b != 0 {
			t.Errorf("slot %d left with borrow count %d", i, b)
		}
	}
}

func TestRegionGenerations(t *testing.T) {
	m := sim.New(1)
	prev := Use(m)
	defer Use(prev)

	var gens []uint32
	m.AsCore(0, func() {
		for i := 0; i < 3; i++ {
			Free(func(outer Token) {
				Free(func(inner Token) {
					if inner.gen != outer.gen {
						t.Errorf("nested region got generation %d, outer %d", inner.gen, outer.gen)
					}
				})
				gens = append(gens, outer.gen)
			})
		}
		if d := regions[0].depth; d != 0 {
			t.Errorf("depth %d after all regions ended", d)
		}
	})
	if len(gens) != 3 || gens[0] == gens[1] || gens[1] == gens[2] {
		t.Errorf("generations %v are not distinct per outermost region", gens)
	}
}
