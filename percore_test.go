package percore_test

import (
	"strings"
	"testing"

	"tinygo.org/x/percore"
	"tinygo.org/x/percore/sim"
)

// useMachine installs a simulated machine for the duration of the test.
func useMachine(t *testing.T, cores int) *sim.Machine {
	t.Helper()
	m := sim.New(cores)
	prev := percore.Use(m)
	t.Cleanup(func() {
		percore.Use(prev)
	})
	return m
}

// fixedCore is a CoreIdentity that always reports the same core.
type fixedCore int

func (c fixedCore) CoreIndex() int {
	return int(c)
}

// expectPanic calls fn and checks that it panics with a message containing
// want.
func expectPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Errorf("no panic, want one containing %q", want)
			return
		}
		msg, _ := r.(string)
		if err, ok := r.(error); ok {
			msg = err.Error()
		}
		if !strings.Contains(msg, want) {
			t.Errorf("panic %q does not contain %q", msg, want)
		}
	}()
	fn()
}
