package scenario

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/inhies/go-bytesize"
	"github.com/sigurn/crc16"

	"tinygo.org/x/percore"
	"tinygo.org/x/percore/arch"
	"tinygo.org/x/percore/sim"
	"tinygo.org/x/percore/spinlock"
)

// ErrMaskLeaked is reported when a core's interrupts are still masked after a
// masked region that panicked has been left.
var ErrMaskLeaked = errors.New("scenario: exceptions still masked after a recovered panic")

var errInjected = errors.New("scenario: injected panic")

// Options configures Execute.
type Options struct {
	// Trace, if set, receives a line for every simulated interrupt.
	Trace io.Writer

	// Pin pins every simulated core to its own host thread and CPU.
	Pin bool
}

// CoreReport is the outcome of one core.
type CoreReport struct {
	Core             int    `yaml:"core"`
	Counter          uint64 `yaml:"counter"`
	Handled          uint64 `yaml:"handled"`
	Panics           uint64 `yaml:"panics"`
	BorrowViolations uint64 `yaml:"borrow_violations"`
	Masks            uint64 `yaml:"masks"`
	Nested           uint64 `yaml:"nested"`
	Deferred         uint64 `yaml:"deferred"`
	Delivered        uint64 `yaml:"delivered"`
}

// Report is the outcome of a scenario run.
type Report struct {
	Name      string       `yaml:"name"`
	Cores     []CoreReport `yaml:"cores"`
	Shared    uint64       `yaml:"shared"`
	Digest    string       `yaml:"digest"`
	Footprint string       `yaml:"footprint"`
}

// Per-core state of a run, kept in percore primitives.
type coreState struct {
	counter    uint64
	handled    uint64
	panics     uint64
	violations uint64
}

type run struct {
	m      *sim.Machine
	cores  *percore.Local[coreState]
	shared *spinlock.Shared[uint64]
}

// Execute runs a scenario on a fresh simulated machine and reports the final
// state of every core.
//
// Execute installs the machine with percore.Use for the duration of the run,
// so scenarios must not be executed concurrently.
func Execute(ctx context.Context, sc *Scenario, opts Options) (*Report, error) {
	m := sim.New(sc.Cores, sim.WithTrace(opts.Trace), sim.WithPinning(opts.Pin))
	prev := percore.Use(m)
	defer percore.Use(prev)

	r := &run{
		m:      m,
		cores:  percore.NewLocal(m, sc.Cores, coreState{}),
		shared: spinlock.NewShared(uint64(0)),
	}
	for irq, ops := range sc.Handlers {
		ops := ops
		m.Handle(irq, func(core int) {
			// A canceled run drains pending interrupts without handling
			// them, so handlers that keep raising interrupts stop too.
			if ctx.Err() != nil {
				return
			}
			r.cores.Update(func(s *coreState) {
				s.handled++
			})
			for _, op := range ops {
				r.exec(core, op)
			}
		})
	}

	err := m.Run(ctx, func(ctx context.Context, core int) error {
		program := sc.Program(core)
		for i := 0; i < sc.Iterations; i++ {
			for _, op := range program {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := r.exec(core, op); err != nil {
					return fmt.Errorf("core %d: %w", core, err)
				}
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		Name:  sc.Name,
		Cores: make([]CoreReport, sc.Cores),
	}
	digest := make([]byte, 0, 8*sc.Cores)
	r.cores.Teardown(func(core int, s coreState) {
		st := m.Stats(core)
		report.Cores[core] = CoreReport{
			Core:             core,
			Counter:          s.counter,
			Handled:          s.handled,
			Panics:           s.panics,
			BorrowViolations: s.violations,
			Masks:            st.Masks,
			Nested:           st.Nested,
			Deferred:         st.Deferred,
			Delivered:        st.Delivered,
		}
		digest = binary.LittleEndian.AppendUint64(digest, s.counter)
	})
	m.AsCore(0, func() {
		report.Shared = r.shared.Load()
	})
	report.Digest = Digest(digest)
	report.Footprint = Footprint(sc.Cores)
	return report, nil
}

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// Digest returns the CRC-16/XMODEM of the final counters, so runs can be
// compared at a glance.
func Digest(counters []byte) string {
	return fmt.Sprintf("%04x", crc16.Checksum(counters, crcTable))
}

// Footprint returns the memory used by the per-core slots of a run.
func Footprint(cores int) string {
	var slot percore.Cell[percore.RefCell[coreState]]
	return bytesize.New(float64(cores) * float64(unsafe.Sizeof(slot))).String()
}

// exec performs one step on the calling core.
func (r *run) exec(core int, op Op) error {
	switch op.Kind {
	case OpInc:
		r.cores.Update(func(s *coreState) {
			s.counter += uint64(op.N)
		})
	case OpShared:
		r.shared.Update(func(v *uint64) {
			*v += uint64(op.N)
		})
	case OpRaise:
		target := op.Core
		if target == Self {
			target = core
		}
		r.m.Raise(target, op.IRQ)
	case OpPoll:
		r.m.Poll()
	case OpNest:
		r.nest(op.N)
	case OpPanic:
		return r.panicInRegion(core)
	case OpReenter:
		r.reenter()
	}
	return nil
}

func (r *run) nest(depth int) {
	percore.Free(func(t percore.Token) {
		if depth > 1 {
			r.nest(depth - 1)
			return
		}
		r.cores.UpdateWith(t, func(s *coreState) {
			s.counter++
		})
	})
}

// panicInRegion mutates the counter and panics before the region ends.
// Programs run with interrupts enabled, so they must be enabled again once the
// panic is recovered.
func (r *run) panicInRegion(core int) error {
	func() {
		defer func() {
			if v := recover(); v != nil && v != errInjected {
				panic(v)
			}
		}()
		r.cores.Update(func(s *coreState) {
			s.counter++
			s.panics++
			panic(errInjected)
		})
	}()
	if r.m.Mask(core) != arch.Enabled {
		return ErrMaskLeaked
	}
	return nil
}

// reenter borrows the core's state a second time while the first borrow is
// still held. The runtime borrow check must refuse.
func (r *run) reenter() {
	percore.Free(func(t percore.Token) {
		first := r.cores.Borrow(t)
		violated := func() (failed bool) {
			defer func() {
				failed = recover() != nil
			}()
			second := r.cores.Borrow(t)
			second.Release()
			return false
		}()
		if violated {
			first.Get().violations++
		}
		first.Release()
	})
}
