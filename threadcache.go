package memory

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/memalloc/memalloc/internal/platform"
)

// localCacheCap is how many blocks of a single size class a refill moves
// from the central store into a per-goroutine cache at once. A class's
// cache holds at most 2*localCacheCap freed blocks; one more drains all
// of them back to the central store under the allocator's lock.
const localCacheCap = 8

// localCache is the per-thread free-list cache described in spec §5:
// sync.Pool shards its contents per-P, which is the closest Go gives
// user code to "per OS thread" without reaching into the runtime.
type localCache struct {
	a      *Allocator
	blocks [64][]unsafe.Pointer
}

// flush drains every cached block back to the central store. It runs
// either explicitly (FlushLocalCache) or as a finalizer when the runtime
// drops a pool entry (e.g. under GC pressure), so a cached free block is
// never silently lost. A single class's overflow is drained by cachedFree
// itself.
func (lc *localCache) flush() {
	if lc.a == nil {
		return
	}
	lc.a.mu.Lock()
	for log := range lc.blocks {
		for _, p := range lc.blocks[log] {
			lc.a.freeBlockLocked(uint(log), p)
		}
		lc.blocks[log] = nil
	}
	lc.a.mu.Unlock()
}

func newLocalCache(a *Allocator) *localCache {
	lc := &localCache{a: a}
	runtime.SetFinalizer(lc, (*localCache).flush)
	return lc
}

func (a *Allocator) cachePool() *sync.Pool {
	a.poolOnce.Do(func() {
		a.pool = &sync.Pool{New: func() any { return newLocalCache(a) }}
	})
	return a.pool
}

// FlushLocalCache returns every block currently parked in the calling
// goroutine's per-class caches to the central store, unmapping any page
// that becomes fully free as a result. Normal operation never needs
// this -- cachedAlloc/cachedFree and the GC finalizer in newLocalCache
// already keep cached blocks from leaking -- but it gives a goroutine
// that is done allocating (or a test wanting an exact OS-memory
// accounting) a way to release its share promptly instead of waiting
// on the next overflow or on the pool entry being collected.
func (a *Allocator) FlushLocalCache() {
	pool := a.cachePool()
	lc := pool.Get().(*localCache)
	lc.flush()
	pool.Put(lc)
}

// cachedAlloc pops one block of class log, preferring the caller's
// goroutine-local cache and only taking a.mu to refill several blocks
// at once when the cache is empty.
func (a *Allocator) cachedAlloc(log uint) unsafe.Pointer {
	pool := a.cachePool()
	lc := pool.Get().(*localCache)
	defer pool.Put(lc)

	if n := len(lc.blocks[log]); n > 0 {
		b := lc.blocks[log][n-1]
		lc.blocks[log] = lc.blocks[log][:n-1]
		return b
	}

	platform.LoadFence()
	a.mu.Lock()
	for i := 0; i < localCacheCap; i++ {
		b, err := a.allocBlockLocked(log)
		if err != nil || b == nil {
			break
		}
		lc.blocks[log] = append(lc.blocks[log], b)
	}
	a.mu.Unlock()
	platform.StoreFence()

	// Hand the refilled blocks out in the order they were carved, so a
	// fresh chunk's first block is the first one returned.
	refill := lc.blocks[log]
	for i, j := 0, len(refill)-1; i < j; i, j = i+1, j-1 {
		refill[i], refill[j] = refill[j], refill[i]
	}

	if n := len(lc.blocks[log]); n > 0 {
		b := lc.blocks[log][n-1]
		lc.blocks[log] = lc.blocks[log][:n-1]
		return b
	}
	return nil
}

// cachedFree pushes a block of class log onto the caller's
// goroutine-local cache, fully draining that class back to the central
// store once the cache grows past twice its nominal capacity. Draining
// to zero (rather than down to localCacheCap) keeps a single hot
// goroutine's cache from permanently pinning blocks the central store
// could otherwise coalesce and unmap.
func (a *Allocator) cachedFree(log uint, b unsafe.Pointer) {
	pool := a.cachePool()
	lc := pool.Get().(*localCache)
	defer pool.Put(lc)

	lc.blocks[log] = append(lc.blocks[log], b)
	if len(lc.blocks[log]) <= 2*localCacheCap {
		return
	}

	a.mu.Lock()
	for _, p := range lc.blocks[log] {
		a.freeBlockLocked(log, p)
	}
	a.mu.Unlock()
	lc.blocks[log] = lc.blocks[log][:0]
}
