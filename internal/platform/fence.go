package platform

import (
	"runtime"
	"sync/atomic"
)

// fenceCounter is a dummy atomic location. Go's memory model ties
// happens-before ordering to synchronization operations (channel sends,
// mutex unlocks, atomic accesses) rather than to bare CPU fence
// instructions, so StoreFence/LoadFence publish and observe through an
// atomic operation on this counter. The value itself is never
// inspected; only the acquire/release ordering it carries matters.
var fenceCounter uint64

// StoreFence publishes prior plain writes so a LoadFence on another
// goroutine, executed after observing the corresponding handoff, is
// guaranteed to see them. Call before handing a freshly carved chunk to
// another goroutine.
func StoreFence() {
	atomic.AddUint64(&fenceCounter, 1)
}

// LoadFence pairs with StoreFence. Call after receiving a handoff and
// before reading the shared state it published.
func LoadFence() {
	atomic.LoadUint64(&fenceCounter)
}

// Fence is a full barrier: both a StoreFence and a LoadFence.
func Fence() {
	StoreFence()
	LoadFence()
}

// Pause yields the current goroutine briefly, for use in spin loops
// waiting on another goroutine's StoreFence. It approximates a
// PAUSE/YIELD CPU instruction with a scheduler yield.
func Pause() {
	runtime.Gosched()
}
