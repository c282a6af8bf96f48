package scenario

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/shlex"
)

// OpKind is the kind of a single scenario step.
type OpKind uint8

const (
	// inc [n]: add n (default 1) to the core's own counter.
	OpInc OpKind = iota
	// shared [n]: add n (default 1) to the counter shared by all cores.
	OpShared
	// raise <irq> [core]: raise an interrupt on a core (default: this one).
	OpRaise
	// poll: take pending interrupts if they are not masked.
	OpPoll
	// nest <depth>: enter depth nested masked regions and increment the
	// counter in the innermost one.
	OpNest
	// panic: increment the counter and panic inside a masked region. The
	// panic is recovered and counted.
	OpPanic
	// reenter: borrow the counter twice inside one region. The second
	// borrow fails and is counted as a borrow violation.
	OpReenter
)

var opNames = map[string]OpKind{
	"inc":     OpInc,
	"shared":  OpShared,
	"raise":   OpRaise,
	"poll":    OpPoll,
	"nest":    OpNest,
	"panic":   OpPanic,
	"reenter": OpReenter,
}

func (k OpKind) String() string {
	for name, kind := range opNames {
		if kind == k {
			return name
		}
	}
	return "OpKind(" + strconv.Itoa(int(k)) + ")"
}

// Self as the target core of a raise means the core executing it.
const Self = -1

// Op is a parsed scenario step.
type Op struct {
	Kind OpKind
	N    int // amount for inc and shared, depth for nest
	IRQ  int
	Core int // target of raise, or Self
}

var errEmptyOp = errors.New("empty operation")

// ParseOp parses a single step such as "inc 3" or "raise 1 0". Steps are split
// like shell words, so "raise '1'" works too.
func ParseOp(line string) (Op, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return Op{}, fmt.Errorf("%q: %w", line, err)
	}
	if len(words) == 0 {
		return Op{}, errEmptyOp
	}
	kind, ok := opNames[words[0]]
	if !ok {
		return Op{}, fmt.Errorf("unknown operation %q", words[0])
	}
	args, err := parseArgs(words[1:])
	if err != nil {
		return Op{}, fmt.Errorf("%s: %w", words[0], err)
	}

	op := Op{Kind: kind, N: 1, Core: Self}
	switch kind {
	case OpInc, OpShared:
		if len(args) > 1 {
			return Op{}, fmt.Errorf("%s takes at most one argument", kind)
		}
		if len(args) == 1 {
			op.N = args[0]
		}
	case OpRaise:
		if len(args) < 1 || len(args) > 2 {
			return Op{}, fmt.Errorf("raise takes an interrupt line and an optional core")
		}
		op.IRQ = args[0]
		if len(args) == 2 {
			op.Core = args[1]
		}
	case OpNest:
		if len(args) != 1 || args[0] < 1 {
			return Op{}, fmt.Errorf("nest takes a depth of at least 1")
		}
		op.N = args[0]
	default:
		if len(args) != 0 {
			return Op{}, fmt.Errorf("%s takes no arguments", kind)
		}
	}
	return op, nil
}

func parseArgs(words []string) ([]int, error) {
	args := make([]int, len(words))
	for i, w := range words {
		n, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("argument %q is not a number", w)
		}
		if n < 0 {
			return nil, fmt.Errorf("argument %d is negative", n)
		}
		args[i] = n
	}
	return args, nil
}
