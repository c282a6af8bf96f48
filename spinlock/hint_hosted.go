//go:build !tinygo

package spinlock

import "runtime"

// Simulated cores are goroutines. Yield so the holder can make progress even
// with GOMAXPROCS=1.
func spinLoopHint() {
	runtime.Gosched()
}
