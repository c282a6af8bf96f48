//go:build tinygo && !scheduler.cores

package arch

// Without the cores scheduler only core 0 ever runs Go code.
func currentCPU() uint32 {
	return 0
}
