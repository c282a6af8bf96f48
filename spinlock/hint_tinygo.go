//go:build tinygo

package spinlock

// Spinning happens with exceptions masked, where the scheduler must not be
// entered. The loop simply retries.
func spinLoopHint() {
}
