package memory

import (
	"os"
	"unsafe"
)

// poisonEnvVar, when set to any non-empty value, enables writing a
// recognizable byte pattern into a block's contents right before it is
// returned to the free list or the OS. This is a debug aid only -- not
// part of the allocator's contract (spec §6) -- meant to turn
// use-after-free into an observable garbage pattern rather than silently
// corrupting memory.
const poisonEnvVar = "MEMALLOC_POISON_FREE"

const poisonByte = 0xDD

var poisonEnabled = os.Getenv(poisonEnvVar) != ""

func maybePoison(p unsafe.Pointer, n int) {
	if !poisonEnabled || n <= 0 {
		return
	}
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = poisonByte
	}
}
