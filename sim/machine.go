// Package sim simulates a multi-core machine with maskable interrupts, so that
// code written against package arch can be exercised on a hosted Go toolchain.
//
// Each simulated core is a goroutine. A Machine implements arch.Platform: the
// core index is found by looking up the calling goroutine, and every core has
// its own interrupt mask and a latch of pending interrupt lines.
//
// Interrupts never arrive at arbitrary instructions as they would on hardware.
// A pending interrupt is taken when its core calls Poll with interrupts
// enabled, when the core restores an enabled mask, or immediately when a core
// raises one on itself while enabled. A line raised while the target core is
// masked stays pending until it is unmasked, like on real hardware.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"tinygo.org/x/percore/arch"
)

// MaxIRQ is the number of interrupt lines of a Machine.
const MaxIRQ = 64

// MaxCores is the largest number of cores a Machine can have.
const MaxCores = 64

var (
	ErrUnbound     = errors.New("sim: goroutine is not bound to a core")
	ErrCoreBusy    = errors.New("sim: core is already running")
	ErrInvalidCore = errors.New("sim: invalid core")
)

// Handler is an interrupt handler. It runs on the interrupted core with
// interrupts masked.
type Handler func(core int)

// Stats counts events on a single core.
type Stats struct {
	Masks     uint64 // Disable calls that masked an enabled core
	Nested    uint64 // Disable calls on an already masked core
	Raised    uint64 // interrupts raised on this core
	Deferred  uint64 // interrupts raised while the core was masked
	Delivered uint64 // interrupt handlers run
}

// Per-core state. Padded so that cores running on different host CPUs do not
// share cache lines.
type coreState struct {
	_ cpu.CacheLinePad

	mask    atomic.Uintptr // arch.State
	pending atomic.Uint64  // bitmap of raised interrupt lines
	owner   atomic.Int64   // goroutine ID bound to this core, or 0

	// Only accessed by the goroutine bound to the core.
	inHandler int

	masks     atomic.Uint64
	nested    atomic.Uint64
	raised    atomic.Uint64
	deferred  atomic.Uint64
	delivered atomic.Uint64

	_ cpu.CacheLinePad
}

// Machine is a simulated multi-core machine.
type Machine struct {
	cores    []coreState
	handlers [MaxIRQ]Handler
	bindings sync.Map // goroutine ID -> core index

	pin bool

	traceLock sync.Mutex
	trace     io.Writer
}

// Option configures a Machine.
type Option func(*Machine)

// WithTrace writes a line for every raised and delivered interrupt to w.
func WithTrace(w io.Writer) Option {
	return func(m *Machine) {
		m.trace = w
	}
}

// WithPinning makes Run pin each core's goroutine to its own host thread and,
// on Linux, that thread to a host CPU.
func WithPinning(pin bool) Option {
	return func(m *Machine) {
		m.pin = pin
	}
}

// New returns a Machine with the given number of cores, all with interrupts
// enabled and nothing pending.
func New(cores int, opts ...Option) *Machine {
	if cores <= 0 || cores > MaxCores {
		panic("sim: number of cores must be in [1, " + strconv.Itoa(MaxCores) + "]")
	}
	m := &Machine{
		cores: make([]coreState, cores),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NumCores returns the number of cores.
func (m *Machine) NumCores() int {
	return len(m.cores)
}

// Handle installs the handler for an interrupt line. It must be called before
// any core runs.
func (m *Machine) Handle(irq int, h Handler) {
	if irq < 0 || irq >= MaxIRQ {
		panic("sim: invalid interrupt line " + strconv.Itoa(irq))
	}
	m.handlers[irq] = h
}

// AsCore runs fn on the calling goroutine as if it were executing on the
// given core. It is the simplest way to drive a Machine from a
// single-threaded test.
func (m *Machine) AsCore(core int, fn func()) {
	if err := m.bind(core); err != nil {
		panic(err)
	}
	defer m.unbind(core)
	fn()
}

func (m *Machine) bind(core int) error {
	if core < 0 || core >= len(m.cores) {
		return fmt.Errorf("%w: %d", ErrInvalidCore, core)
	}
	gid := goroutineID()
	if _, ok := m.bindings.Load(gid); ok {
		return fmt.Errorf("sim: goroutine %d is already bound to a core", gid)
	}
	if !m.cores[core].owner.CompareAndSwap(0, gid) {
		return fmt.Errorf("%w: %d", ErrCoreBusy, core)
	}
	m.bindings.Store(gid, core)
	return nil
}

func (m *Machine) unbind(core int) {
	gid := m.cores[core].owner.Swap(0)
	m.bindings.Delete(gid)
}

// CoreError is returned by Run when a core's program panics.
type CoreError struct {
	Core  int
	Value any
}

func (e *CoreError) Error() string {
	return fmt.Sprintf("sim: core %d panicked: %v", e.Core, e.Value)
}

// Run starts program on every core, each on its own goroutine, and waits for
// all of them to return. Errors and panics of all cores are joined.
func (m *Machine) Run(ctx context.Context, program func(ctx context.Context, core int) error) error {
	errs := make([]error, len(m.cores))
	var wg sync.WaitGroup
	for i := range m.cores {
		wg.Add(1)
		go func(core int) {
			defer wg.Done()
			errs[core] = m.runCore(ctx, core, program)
		}(i)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (m *Machine) runCore(ctx context.Context, core int, program func(ctx context.Context, core int) error) (err error) {
	if m.pin {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinThread(core); err != nil {
			return fmt.Errorf("sim: pin core %d: %w", core, err)
		}
	}
	if err := m.bind(core); err != nil {
		return err
	}
	defer m.unbind(core)
	defer func() {
		if r := recover(); r != nil {
			err = &CoreError{Core: core, Value: r}
		}
	}()
	return program(ctx, core)
}

// current returns the index of the core bound to the calling goroutine.
func (m *Machine) current() int {
	core, ok := m.bindings.Load(goroutineID())
	if !ok {
		panic(ErrUnbound)
	}
	return core.(int)
}

// CoreIndex implements arch.CoreIdentity.
func (m *Machine) CoreIndex() int {
	return m.current()
}

// Disable implements arch.Masker.
func (m *Machine) Disable() arch.State {
	c := &m.cores[m.current()]
	prev := arch.State(c.mask.Swap(uintptr(arch.Masked)))
	if prev == arch.Masked {
		c.nested.Add(1)
	} else {
		c.masks.Add(1)
	}
	return prev
}

// Restore implements arch.Masker. Restoring an enabled state takes all
// interrupts that became pending while the core was masked.
func (m *Machine) Restore(state arch.State) {
	core := m.current()
	m.cores[core].mask.Store(uintptr(state))
	if state == arch.Enabled {
		m.deliver(core)
	}
}

// Poll is an interruption point: if interrupts are enabled on the calling
// core, pending interrupts are taken now.
func (m *Machine) Poll() {
	core := m.current()
	if arch.State(m.cores[core].mask.Load()) == arch.Enabled {
		m.deliver(core)
	}
}

// InInterrupt reports whether the calling core is running an interrupt
// handler.
func (m *Machine) InInterrupt() bool {
	return m.cores[m.current()].inHandler > 0
}

// Mask returns the mask state of a core.
func (m *Machine) Mask(core int) arch.State {
	return arch.State(m.cores[core].mask.Load())
}

// Pending returns the bitmap of interrupt lines pending on a core.
func (m *Machine) Pending(core int) uint64 {
	return m.cores[core].pending.Load()
}

// Stats returns the event counters of a core.
func (m *Machine) Stats(core int) Stats {
	c := &m.cores[core]
	return Stats{
		Masks:     c.masks.Load(),
		Nested:    c.nested.Load(),
		Raised:    c.raised.Load(),
		Deferred:  c.deferred.Load(),
		Delivered: c.delivered.Load(),
	}
}

// Raise makes an interrupt line pending on a core. It may be called from any
// goroutine. When a core raises an interrupt on itself with interrupts
// enabled, the handler runs before Raise returns.
func (m *Machine) Raise(core, irq int) {
	if core < 0 || core >= len(m.cores) {
		panic(fmt.Errorf("%w: %d", ErrInvalidCore, core))
	}
	if irq < 0 || irq >= MaxIRQ {
		panic("sim: invalid interrupt line " + strconv.Itoa(irq))
	}
	c := &m.cores[core]
	for {
		old := c.pending.Load()
		if c.pending.CompareAndSwap(old, old|1<<irq) {
			break
		}
	}
	c.raised.Add(1)
	masked := arch.State(c.mask.Load()) == arch.Masked
	if masked {
		c.deferred.Add(1)
	}
	m.tracef(core, "raise irq=%d masked=%t", irq, masked)

	if self, ok := m.bindings.Load(goroutineID()); ok && self.(int) == core && !masked {
		m.deliver(core)
	}
}

// deliver runs the handlers of all pending interrupts of a core, lowest line
// first. It must be called on that core with interrupts enabled.
func (m *Machine) deliver(core int) {
	c := &m.cores[core]
	for {
		pending := c.pending.Load()
		if pending == 0 {
			return
		}
		irq := 0
		for pending&(1<<irq) == 0 {
			irq++
		}
		if !c.pending.CompareAndSwap(pending, pending&^(1<<irq)) {
			continue
		}
		m.take(core, irq)
	}
}

// take runs one handler the way hardware enters an exception: interrupts are
// masked on entry and enabled again on return.
func (m *Machine) take(core, irq int) {
	h := m.handlers[irq]
	if h == nil {
		panic("sim: unhandled interrupt " + strconv.Itoa(irq) + " on core " + strconv.Itoa(core))
	}
	c := &m.cores[core]
	c.mask.Store(uintptr(arch.Masked))
	c.inHandler++
	defer func() {
		c.inHandler--
		c.mask.Store(uintptr(arch.Enabled))
	}()
	c.delivered.Add(1)
	m.tracef(core, "deliver irq=%d", irq)
	h(core)
}

func (m *Machine) tracef(core int, format string, args ...any) {
	if m.trace == nil {
		return
	}
	m.traceLock.Lock()
	defer m.traceLock.Unlock()
	fmt.Fprintf(m.trace, "core=%d "+format+"\n", append([]any{core}, args...)...)
}
