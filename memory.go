// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memory implements a general-purpose allocator: fixed-size
// free lists for small and medium requests, a direct OS-backed path for
// large ones, and per-thread caching that keeps free-list work off the
// shared lock in the common case. Every allocate and free still takes the
// shared lock briefly to update the live-allocation count.
//
// Every public operation is safe to call concurrently from multiple
// goroutines on disjoint pointers; concurrent operations on the same
// pointer are the caller's responsibility.
package memory

import (
	"os"
	"reflect"
	"sync"
	"unsafe"

	"github.com/memalloc/memalloc/internal/platform"
)

const (
	mallocAllign = 16 // Must be >= 16
	intBits      = 1 << (^uint(0)>>32&1 + ^uint(0)>>16&1 + ^uint(0)>>8&1 + 3)
)

var (
	// headerSize is rounded up to a cache line, not just mallocAllign,
	// so a chunk's first block lands on a cache-line boundary (the
	// chunk itself is already OS-page-aligned). Not a contractual
	// alignment guarantee -- see the Open Questions in DESIGN.md -- but
	// deliberately preserved from the allocator this was ported from.
	headerSize  = roundup(int(unsafe.Sizeof(page{})), platform.CacheLineSize)
	maxSlotSize = pageAvail >> 1
	osPageMask  = osPageSize - 1
	osPageSize  = os.Getpagesize()
	pageAvail   = pageSize - headerSize
	pageMask    = pageSize - 1
)

// if n%m != 0 { n += m-n%m }. m must be a power of 2.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

type node struct {
	prev, next *node
}

type page struct {
	brk  int
	log  uint
	size int
	used int
}

// Allocator allocates and frees memory. Its zero value is ready for use.
//
// An Allocator owns a central store (the per-class free lists and the
// page table) guarded by mu, and a pool of per-goroutine caches that
// serve the common allocate/free pair without touching the central free
// lists. Each operation still locks mu briefly to update allocs (and, in
// UnsafeFree, to read the owning page). See threadcache.go.
type Allocator struct {
	mu sync.Mutex

	allocs int // # of allocs.
	bytes  int // Asked from OS.
	cap    [64]int
	lists  [64]*node
	mmaps  int // Asked from OS.
	pages  [64]*page
	regs   map[*page]struct{}

	poolOnce sync.Once
	pool     *sync.Pool
}

func (a *Allocator) mmap(size int) (*page, error) {
	b, err := mmap(size)
	if err != nil {
		return nil, err
	}

	a.mmaps++
	a.bytes += len(b)
	p := (*page)(unsafe.Pointer(&b[0]))
	if a.regs == nil {
		a.regs = map[*page]struct{}{}
	}
	p.size = len(b)
	a.regs[p] = struct{}{}
	return p, nil
}

func (a *Allocator) newPage(size int) (*page, error) {
	size += headerSize
	p, err := a.mmap(size)
	if err != nil {
		return nil, err
	}

	p.log = 0
	return p, nil
}

func (a *Allocator) newSharedPage(log uint) (*page, error) {
	if a.cap[log] == 0 {
		a.cap[log] = pageAvail / (1 << log)
	}
	size := headerSize + a.cap[log]<<log
	p, err := a.mmap(size)
	if err != nil {
		return nil, err
	}

	a.pages[log] = p
	p.log = log
	return p, nil
}

func (a *Allocator) unmap(p *page) error {
	delete(a.regs, p)
	a.mmaps--
	return unmap(unsafe.Pointer(p), p.size)
}

// allocBlockLocked returns one block of the given class, refilling the
// shared pages/free list from a freshly mmap'd chunk if needed. Callers
// must hold a.mu. This is the free-list manager's pop operation
// (spec §4.3), amortised O(1).
func (a *Allocator) allocBlockLocked(log uint) (unsafe.Pointer, error) {
	if a.lists[log] == nil && a.pages[log] == nil {
		if _, err := a.newSharedPage(log); err != nil {
			return nil, err
		}
	}

	if p := a.pages[log]; p != nil {
		p.used++
		ptr := unsafe.Pointer(uintptr(unsafe.Pointer(p)) + uintptr(headerSize+(p.brk)<<log))
		p.brk++
		if p.brk == a.cap[log] {
			a.pages[log] = nil
		}
		return ptr, nil
	}

	n := a.lists[log]
	p := (*page)(unsafe.Pointer(uintptr(unsafe.Pointer(n)) &^ uintptr(pageMask)))
	a.lists[log] = n.next
	if n.next != nil {
		n.next.prev = nil
	}
	p.used++
	return unsafe.Pointer(n), nil
}

// freeBlockLocked returns a block of the given class to its free list,
// unmapping the owning page once it is fully drained (the free-list
// manager's push operation, spec §4.3). Callers must hold a.mu.
func (a *Allocator) freeBlockLocked(log uint, ptr unsafe.Pointer) error {
	pg := (*page)(unsafe.Pointer(uintptr(ptr) &^ uintptr(pageMask)))

	n := (*node)(ptr)
	n.prev = nil
	n.next = a.lists[log]
	if n.next != nil {
		n.next.prev = n
	}
	a.lists[log] = n
	pg.used--
	if pg.used != 0 {
		return nil
	}

	for i := 0; i < pg.brk; i++ {
		n := (*node)(unsafe.Pointer(uintptr(unsafe.Pointer(pg)) + uintptr(headerSize+i<<log)))
		switch {
		case n.prev == nil:
			a.lists[log] = n.next
			if n.next != nil {
				n.next.prev = nil
			}
		case n.next == nil:
			n.prev.next = nil
		default:
			n.prev.next = n.next
			n.next.prev = n.prev
		}
	}

	if a.pages[log] == pg {
		a.pages[log] = nil
	}
	a.bytes -= pg.size
	return a.unmap(pg)
}

// Calloc is like Malloc except the allocated memory is zeroed.
func (a *Allocator) Calloc(size int) (r []byte, err error) {
	b, err := a.Malloc(size)
	if err != nil {
		return nil, err
	}

	for i := range b {
		b[i] = 0
	}
	logAllocator().Debugw("calloc", "size", size, "ptr", ptrOf(b))
	return b, nil
}

// Close releases all OS resources used by a and sets it to its zero value.
//
// It's not necessary to Close the Allocator when exiting a process.
func (a *Allocator) Close() (err error) {
	a.mu.Lock()
	for p := range a.regs {
		if e := a.unmap(p); e != nil && err == nil {
			err = e
		}
	}
	a.mu.Unlock()
	*a = Allocator{}
	return err
}

// Free deallocates memory (as in C.free). The argument of Free must have been
// acquired from Calloc or Malloc or Realloc.
func (a *Allocator) Free(b []byte) (err error) {
	b = b[:cap(b)]
	if len(b) == 0 {
		return nil
	}

	return a.UnsafeFree(unsafe.Pointer(&b[0]))
}

// Malloc allocates size bytes and returns a byte slice of the allocated
// memory. The memory is not initialized. Malloc panics for size < 0 and
// returns (nil, nil) for zero size.
//
// It's ok to reslice the returned slice but the result of appending to it
// cannot be passed to Free or Realloc as it may refer to a different backing
// array afterwards.
func (a *Allocator) Malloc(size int) (r []byte, err error) {
	if size < 0 {
		panic("invalid malloc size")
	}

	if size == 0 {
		return nil, nil
	}

	p, err := a.UnsafeMalloc(size)
	if err != nil || p == nil {
		return nil, err
	}

	var b []byte
	sh := (*reflect.SliceHeader)(unsafe.Pointer(&b))
	sh.Data = uintptr(p)
	sh.Len = size
	sc := classFor(size)
	if sc.large {
		sh.Cap = size
	} else {
		sh.Cap = sc.blockSize
	}
	return b, nil
}

// Realloc changes the size of the backing array of b to size bytes or returns
// an error, if any.  The contents will be unchanged in the range from the
// start of the region up to the minimum of the old and new  sizes.   If the
// new size is larger than the old size, the added memory will not be
// initialized.  If b's backing array is of zero size, then the call is
// equivalent to Malloc(size), for all values of size; if size is equal to
// zero, and b's backing array is not of zero size, then the call is equivalent
// to Free(b).  Unless b's backing array is of zero size, it must have been
// returned by an earlier call to Malloc, Calloc or Realloc.  If the area
// pointed to was moved, a Free(b) is done.
func (a *Allocator) Realloc(b []byte, size int) (r []byte, err error) {
	switch {
	case cap(b) == 0:
		return a.Malloc(size)
	case size == 0 && cap(b) != 0:
		return nil, a.Free(b)
	case size <= cap(b):
		return b[:size], nil
	}

	if r, err = a.Malloc(size); err != nil {
		return nil, err
	}

	copy(r, b)
	return r, a.Free(b)
}

// UnsafeCalloc is like Calloc except it returns an unsafe.Pointer.
func (a *Allocator) UnsafeCalloc(size int) (r unsafe.Pointer, err error) {
	if r, err = a.UnsafeMalloc(size); r == nil || err != nil {
		return nil, err
	}

	switch {
	case intBits > 32:
		b := ((*[1 << 49]byte)(r))[:size]
		for i := range b {
			b[i] = 0
		}
	default:
		b := ((*[1 << 31]byte)(r))[:size]
		for i := range b {
			b[i] = 0
		}
	}
	return r, nil
}

// UnsafeFree is like Free except its argument is an unsafe.Pointer, which must
// have been acquired from UnsafeCalloc or UnsafeMalloc or UnsafeRealloc.
func (a *Allocator) UnsafeFree(p unsafe.Pointer) (err error) {
	if p == nil {
		return nil
	}

	a.mu.Lock()
	pg := (*page)(unsafe.Pointer(uintptr(p) &^ uintptr(pageMask)))
	log := pg.log
	a.allocs--
	if log == 0 {
		maybePoison(p, pg.size-headerSize)
		a.bytes -= pg.size
		err = a.unmap(pg)
		a.mu.Unlock()
		logAllocator().Debugw("free", "ptr", p, "large", true)
		return err
	}
	a.mu.Unlock()

	maybePoison(p, 1<<log)
	a.cachedFree(log, p)
	logAllocator().Debugw("free", "ptr", p, "class", log)
	return nil
}

// UnsafeMalloc is like Malloc except it returns an unsafe.Pointer.
func (a *Allocator) UnsafeMalloc(size int) (r unsafe.Pointer, err error) {
	if size < 0 {
		panic("invalid malloc size")
	}

	if size == 0 {
		return nil, nil
	}

	sc := classFor(size)
	if sc.large {
		return a.unsafeNewLarge(size)
	}

	r = a.cachedAlloc(sc.index)
	if r == nil {
		return nil, errOOM
	}

	a.mu.Lock()
	a.allocs++
	a.mu.Unlock()
	logAllocator().Debugw("malloc", "size", size, "ptr", r, "class", sc.index)
	return r, nil
}

func (a *Allocator) unsafeNewLarge(size int) (unsafe.Pointer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, err := a.newPage(size)
	if err != nil {
		return nil, err
	}
	a.allocs++
	return unsafe.Pointer(uintptr(unsafe.Pointer(p)) + uintptr(headerSize)), nil
}

// UnsafeUsableSize is like UsableSize except its argument is an
// unsafe.Pointer, which must have been returned from UnsafeCalloc,
// UnsafeMalloc or UnsafeRealloc.
func UnsafeUsableSize(p unsafe.Pointer) (r int) {
	if p == nil {
		return 0
	}

	pg := (*page)(unsafe.Pointer(uintptr(p) &^ uintptr(pageMask)))
	if pg.log != 0 {
		return 1 << pg.log
	}

	return pg.size - headerSize
}

// UnsafeRealloc is like Realloc except its first argument is an
// unsafe.Pointer, which must have been returned from UnsafeCalloc,
// UnsafeMalloc or UnsafeRealloc.
func (a *Allocator) UnsafeRealloc(p unsafe.Pointer, size int) (r unsafe.Pointer, err error) {
	switch {
	case p == nil:
		return a.UnsafeMalloc(size)
	case size == 0 && p != nil:
		return nil, a.UnsafeFree(p)
	}

	us := UnsafeUsableSize(p)
	if us >= size {
		return p, nil
	}

	if r, err = a.UnsafeMalloc(size); err != nil {
		return nil, err
	}

	n := us
	if size < n {
		n = size
	}
	fastCopyPointers(r, p, uintptr(n))
	return r, a.UnsafeFree(p)
}

// UsableSize reports the size of the memory block allocated at p, which must
// point to the first byte of a slice returned from Calloc, Malloc or Realloc.
// The allocated memory block size can be larger than the size originally
// requested from Calloc, Malloc or Realloc.
func UsableSize(p *byte) (r int) { return UnsafeUsableSize(unsafe.Pointer(p)) }

func ptrOf(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}
