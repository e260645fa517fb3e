package memory

import (
	"errors"
	"unsafe"

	"github.com/memalloc/memalloc/internal/platform"
)

// errOOM is returned (via a nil pointer) when the OS refuses to hand
// back pages for a small-class request; a large request returns the OS
// mapping error itself. The pointer-returning public surface never
// surfaces this value directly -- it is the sentinel behind "return
// nil" -- but the []byte-returning instance API still threads it
// through as a real error, matching spec §7's taxonomy.
var errOOM = errors.New("memory: out of memory")

// fastCopyPointers copies n bytes between two allocator-owned blocks
// using the platform's width-tiered copy, used by UnsafeRealloc to
// preserve contents across a move (Realloc uses the copy builtin).
func fastCopyPointers(dst, src unsafe.Pointer, n uintptr) {
	platform.FastCopy(dst, src, n)
}

// LargeAllocCount reports the number of live allocations currently
// served directly from the OS (requests above MaxSmall), i.e. the size
// of the large-allocation path's bookkeeping (spec §4.4).
func (a *Allocator) LargeAllocCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for p := range a.regs {
		if p.log == 0 {
			n++
		}
	}
	return n
}

// LargeAllocBytes reports the total OS-page-rounded bytes currently
// held by the large-allocation path.
func (a *Allocator) LargeAllocBytes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for p := range a.regs {
		if p.log == 0 {
			n += p.size
		}
	}
	return n
}
