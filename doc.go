// Package percore provides safe per-core mutable state on bare-metal targets,
// where the only way to keep an interrupt handler away from data is to mask
// interrupts on the current core.
//
// Three pieces work together:
//
//   - [Free] masks exceptions on the current core, hands a [Token] to the
//     caller's function and restores the previous mask state afterwards, also
//     when the function panics.
//   - [Cell] guards a value so that it can only be reached by presenting a
//     Token, that is, while exceptions are masked.
//   - [Slots] holds one value per core and only ever gives a core its own value.
//
// Combined with a [RefCell] for mutable access this gives per-core state that
// is safe against the core's own interrupt handlers:
//
//	var counters = percore.NewSlotsFunc(arch.Default(), runtime.NumCPU(),
//		func(int) percore.Cell[percore.RefCell[int]] {
//			return percore.MakeCell(percore.MakeRefCell(0))
//		})
//
//	percore.Free(func(t percore.Token) {
//		v := percore.BorrowMut(counters.Get(), t)
//		defer v.Release()
//		*v.Get() += 1
//	})
//
// [Local] packages exactly this combination.
//
// Masking only keeps out interrupts on the current core. A Cell that several
// cores share additionally needs a lock that can be taken with exceptions
// masked, such as the one in package spinlock.
//
// Go cannot stop a Token from being stored or passed to another goroutine, so
// every guarded access validates the token at run time. The tokencheck
// analyzer catches most such misuse statically.
package percore
