//go:build !linux

package sim

// Thread pinning is only implemented on Linux.
func pinThread(core int) error {
	return nil
}
