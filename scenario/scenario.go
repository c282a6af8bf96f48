// Package scenario runs scripted per-core workloads on a simulated machine.
//
// A scenario is a YAML file naming the number of cores, a program of steps
// for each core, and the steps each interrupt handler performs:
//
//	name: counters
//	cores: 2
//	iterations: 100
//	programs:
//	  all: ["inc", "raise 1", "poll"]
//	  "0": ["inc 5", "shared"]
//	handlers:
//	  1: ["inc 10"]
//
// Every core runs its program the given number of times. A core without a
// program of its own runs the "all" program.
package scenario

import (
	"fmt"
	"go/token"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"tinygo.org/x/percore/sim"
)

// File is the YAML form of a scenario.
type File struct {
	Name       string              `yaml:"name"`
	Cores      int                 `yaml:"cores"`
	Iterations int                 `yaml:"iterations"`
	Programs   map[string][]string `yaml:"programs"`
	Handlers   map[int][]string    `yaml:"handlers"`
}

// Scenario is a parsed and validated scenario.
type Scenario struct {
	Name       string
	Cores      int
	Iterations int
	Programs   [][]Op       // indexed by core
	Handlers   map[int][]Op // indexed by interrupt line
}

// Program returns the steps run by a core.
func (sc *Scenario) Program(core int) []Op {
	return sc.Programs[core]
}

// Error is a problem at a particular place in a scenario file.
type Error struct {
	Pos  token.Position
	Path string // location inside the document, like "programs.0[2]"
	Msg  string
}

func (e Error) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() || e.Pos.Filename != "" {
		b.WriteString(e.Pos.String())
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	return b.String()
}

// Errors is the list of problems found in one scenario file.
type Errors struct {
	Filename string
	Errs     []error
}

func (e Errors) Error() string {
	if len(e.Errs) == 1 {
		return e.Errs[0].Error()
	}
	return fmt.Sprintf("%s: %d errors in scenario", e.Filename, len(e.Errs))
}

func (e Errors) Unwrap() []error {
	return e.Errs
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// yaml.v2 reports type errors as "line N: message".
var yamlLine = regexp.MustCompile(`^(?:yaml: )?line (\d+): (.*)$`)

// Parse parses and validates a scenario. Problems are returned as Errors.
func Parse(data []byte, filename string) (*Scenario, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, yamlErrors(err, filename)
	}

	errs := Errors{Filename: filename}
	report := func(path, format string, args ...any) {
		errs.Errs = append(errs.Errs, Error{
			Pos:  token.Position{Filename: filename},
			Path: path,
			Msg:  fmt.Sprintf(format, args...),
		})
	}

	sc := &Scenario{
		Name:       f.Name,
		Cores:      f.Cores,
		Iterations: f.Iterations,
		Handlers:   make(map[int][]Op),
	}
	if sc.Iterations == 0 {
		sc.Iterations = 1
	}
	if sc.Cores < 1 || sc.Cores > sim.MaxCores {
		report("cores", "must be in [1, %d], not %d", sim.MaxCores, f.Cores)
		return nil, errs
	}
	if sc.Iterations < 0 {
		report("iterations", "must not be negative")
	}

	parseOps := func(path string, lines []string, inHandler bool) []Op {
		ops := make([]Op, 0, len(lines))
		for i, line := range lines {
			at := path + "[" + strconv.Itoa(i) + "]"
			op, err := ParseOp(line)
			if err != nil {
				report(at, "%v", err)
				continue
			}
			switch {
			case op.Kind == OpRaise && op.IRQ >= sim.MaxIRQ:
				report(at, "interrupt line %d out of range [0, %d)", op.IRQ, sim.MaxIRQ)
				continue
			case op.Kind == OpRaise && op.Core != Self && op.Core >= sc.Cores:
				report(at, "core %d out of range [0, %d)", op.Core, sc.Cores)
				continue
			case op.Kind == OpRaise && f.Handlers[op.IRQ] == nil:
				report(at, "no handler for interrupt line %d", op.IRQ)
				continue
			case inHandler && (op.Kind == OpPanic || op.Kind == OpReenter):
				report(at, "%s is not allowed in an interrupt handler", op.Kind)
				continue
			}
			ops = append(ops, op)
		}
		return ops
	}

	lines := sortedKeys(f.Handlers)
	for _, irq := range lines {
		if irq < 0 || irq >= sim.MaxIRQ {
			report("handlers", "interrupt line %d out of range [0, %d)", irq, sim.MaxIRQ)
			continue
		}
		sc.Handlers[irq] = parseOps("handlers."+strconv.Itoa(irq), f.Handlers[irq], true)
	}

	if irq, ok := selfRaiseCycle(sc.Handlers); ok {
		report("handlers."+strconv.Itoa(irq), "handler for interrupt line %d keeps raising interrupts on its own core and never finishes", irq)
	}

	common := parseOps("programs.all", f.Programs["all"], false)
	sc.Programs = make([][]Op, sc.Cores)
	for i := range sc.Programs {
		sc.Programs[i] = common
	}
	for _, key := range sortedKeys(f.Programs) {
		if key == "all" {
			continue
		}
		core, err := strconv.Atoi(key)
		if err != nil || core < 0 || core >= sc.Cores {
			report("programs", "key %q is neither \"all\" nor a core in [0, %d)", key, sc.Cores)
			continue
		}
		sc.Programs[core] = parseOps("programs."+key, f.Programs[key], false)
	}

	if len(errs.Errs) != 0 {
		return nil, errs
	}
	return sc, nil
}

// selfRaiseCycle finds a handler that, directly or through other handlers,
// raises an interrupt on its own core whose handler is already running.
// Delivering such a line never ends. It returns the lowest such line.
func selfRaiseCycle(handlers map[int][]Op) (int, bool) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[int]int)
	var visit func(irq int) bool
	visit = func(irq int) bool {
		switch state[irq] {
		case visiting:
			return true
		case done:
			return false
		}
		state[irq] = visiting
		for _, op := range handlers[irq] {
			if op.Kind == OpRaise && op.Core == Self && visit(op.IRQ) {
				return true
			}
		}
		state[irq] = done
		return false
	}
	for _, irq := range sortedKeys(handlers) {
		clear(state)
		if visit(irq) {
			return irq, true
		}
	}
	return 0, false
}

func yamlErrors(err error, filename string) error {
	errs := Errors{Filename: filename}
	msgs := []string{err.Error()}
	if te, ok := err.(*yaml.TypeError); ok {
		msgs = te.Errors
	}
	for _, msg := range msgs {
		e := Error{Pos: token.Position{Filename: filename}, Msg: msg}
		if m := yamlLine.FindStringSubmatch(msg); m != nil {
			e.Pos.Line, _ = strconv.Atoi(m[1])
			e.Msg = m[2]
		}
		errs.Errs = append(errs.Errs, e)
	}
	return errs
}

func sortedKeys[K int | string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	return keys
}
