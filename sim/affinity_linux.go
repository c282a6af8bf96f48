//go:build linux

package sim

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinThread binds the calling OS thread to a host CPU, so that simulated core
// i keeps running on the same host CPU. The caller must have locked the
// goroutine to its thread.
func pinThread(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core % runtime.NumCPU())
	return unix.SchedSetaffinity(0, &set)
}
