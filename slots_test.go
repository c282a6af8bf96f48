package percore_test

import (
	"testing"

	"tinygo.org/x/percore"
)

func TestSlotsIsolation(t *testing.T) {
	const cores = 4
	m := useMachine(t, cores)
	s := percore.NewSlotsDefault[int](m, cores)

	ptrs := make([]*int, cores)
	for i := 0; i < cores; i++ {
		m.AsCore(i, func() {
			ptrs[i] = s.Get()
			if again := s.Get(); again != ptrs[i] {
				t.Errorf("core %d: Get is not stable", i)
			}
		})
	}
	for i := range ptrs {
		for j := range ptrs {
			if i != j && ptrs[i] == ptrs[j] {
				t.Errorf("cores %d and %d share a slot", i, j)
			}
		}
	}
}

func TestSlotsOutOfRange(t *testing.T) {
	s := percore.NewSlots[int](fixedCore(5), []int{1, 2})
	expectPanic(t, "core index 5 out of range [0, 2)", func() {
		s.Get()
	})
}

func TestSlotsCopiesValues(t *testing.T) {
	values := []int{1, 2}
	s := percore.NewSlots[int](fixedCore(1), values)
	values[1] = 100
	if got := *s.Get(); got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestSlotsFunc(t *testing.T) {
	s := percore.NewSlotsFunc(fixedCore(2), 3, func(core int) int {
		return core * 10
	})
	if got := *s.Get(); got != 20 {
		t.Errorf("Get() = %d, want 20", got)
	}
}

func TestSlotsTeardown(t *testing.T) {
	s := percore.NewSlots[int](fixedCore(0), []int{3, 4, 5})
	var visited []int
	s.Teardown(func(core int, v *int) {
		visited = append(visited, *v)
	})
	if len(visited) != 3 || visited[0] != 3 || visited[2] != 5 {
		t.Errorf("Teardown visited %v, want [3 4 5]", visited)
	}
	expectPanic(t, "used after Teardown", func() {
		s.Get()
	})
}

func TestSlotsNeedACore(t *testing.T) {
	expectPanic(t, "at least one core", func() {
		percore.NewSlots[int](fixedCore(0), nil)
	})
	expectPanic(t, "at least one core", func() {
		percore.NewSlotsDefault[int](fixedCore(0), 0)
	})
}
