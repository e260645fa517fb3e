package memory

import (
	"math"
	"sync"
	"unsafe"
)

// implementationMax is the largest size for which round-up-to-page
// does not overflow int. Requests above it are rejected the same way
// requests that overflow count*elemSize in Callocate are.
var implementationMax = computeImplementationMax()

func computeImplementationMax() int {
	if intBits > 32 {
		return math.MaxInt64 - osPageSize
	}
	return math.MaxInt32 - osPageSize
}

var (
	defaultOnce sync.Once
	defaultAlloc *Allocator
)

// DefaultAllocator returns the process-wide Allocator backing the
// package-level Allocate/Deallocate/Reallocate/Callocate functions. It
// is created lazily on first use (spec §9: "Global state... initialize
// lazily on first use").
func DefaultAllocator() *Allocator {
	defaultOnce.Do(func() {
		defaultAlloc = &Allocator{}
	})
	return defaultAlloc
}

// Allocate returns a pointer to a block of at least size bytes, or nil.
// size == 0 and size > the implementation's maximum both return nil
// without allocating (spec §4.5, §7, §8).
func Allocate(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	if size > uintptr(implementationMax) {
		return nil
	}

	p, err := DefaultAllocator().UnsafeMalloc(int(size))
	if err != nil {
		return nil
	}
	return p
}

// Deallocate returns p, previously returned by Allocate, Callocate or
// Reallocate, to the allocator. Deallocate(nil) is a no-op.
func Deallocate(p unsafe.Pointer) {
	if p == nil {
		return
	}
	_ = DefaultAllocator().UnsafeFree(p)
}

// Reallocate resizes the block at p to at least newSize bytes,
// preserving min(old usable size, newSize) bytes of content.
//
//   - p == nil, newSize > 0: behaves as Allocate(newSize).
//   - p != nil, newSize == 0: frees p and returns nil.
//   - p == nil, newSize == 0: returns nil.
//   - on failure: p remains valid and unchanged, and nil is returned.
func Reallocate(p unsafe.Pointer, newSize uintptr) unsafe.Pointer {
	switch {
	case p == nil && newSize == 0:
		return nil
	case p == nil:
		return Allocate(newSize)
	case newSize == 0:
		Deallocate(p)
		return nil
	}

	if newSize > uintptr(implementationMax) {
		return nil
	}

	r, err := DefaultAllocator().UnsafeRealloc(p, int(newSize))
	if err != nil {
		// The original block is untouched by UnsafeRealloc on failure:
		// it only frees p after a successful UnsafeMalloc of the
		// replacement, so p is still valid here.
		return nil
	}
	return r
}

// Callocate allocates space for count objects of elemSize bytes each,
// zeroed. Returns nil if count or elemSize is zero, if count*elemSize
// overflows, or if the underlying allocation fails.
func Callocate(count, elemSize uintptr) unsafe.Pointer {
	if count == 0 || elemSize == 0 {
		return nil
	}

	total := count * elemSize
	if total/count != elemSize { // overflow check
		return nil
	}
	if total > uintptr(implementationMax) {
		return nil
	}

	p, err := DefaultAllocator().UnsafeCalloc(int(total))
	if err != nil {
		return nil
	}
	return p
}
