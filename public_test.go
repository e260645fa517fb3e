package memory

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestAllocateBasic(t *testing.T) {
	p := Allocate(5)
	require.NotNil(t, p)
	Deallocate(p)
}

func TestAllocateDifferentSizes(t *testing.T) {
	for _, size := range []uintptr{1, 16, 64, 128, 512, 1024} {
		p := Allocate(size)
		require.NotNilf(t, p, "size %d", size)
		Deallocate(p)
	}
}

// maxAlign mirrors alignof(max_align_t) on the supported architectures.
const maxAlign = 16

func TestAllocateAlignment(t *testing.T) {
	p := Allocate(64)
	require.NotNil(t, p)
	require.Zero(t, uintptr(p)%maxAlign)
	Deallocate(p)
}


func TestAllocateZeroReturnsNil(t *testing.T) {
	require.Nil(t, Allocate(0))
}

func TestAllocateHugeSizeFails(t *testing.T) {
	require.Nil(t, Allocate(^uintptr(0)))
	require.Nil(t, Allocate(^uintptr(0) - 1))
}

func TestDeallocateNilIsNoOp(t *testing.T) {
	require.NotPanics(t, func() { Deallocate(nil) })
}

func TestCallocateZeroesMemory(t *testing.T) {
	p := Callocate(5, unsafe.Sizeof(int(0)))
	require.NotNil(t, p)
	defer Deallocate(p)

	words := unsafe.Slice((*int)(p), 5)
	for i, w := range words {
		require.Zerof(t, w, "word %d", i)
	}
}

func TestCallocateZeroArgsReturnsNil(t *testing.T) {
	require.Nil(t, Callocate(0, 8))
	require.Nil(t, Callocate(8, 0))
}

func TestCallocateOverflowReturnsNil(t *testing.T) {
	require.Nil(t, Callocate(^uintptr(0), ^uintptr(0)))
}

func TestReallocatePreservesContent(t *testing.T) {
	p := Allocate(8)
	require.NotNil(t, p)
	b := unsafe.Slice((*byte)(p), 8)
	for i := range b {
		b[i] = byte(i)
	}

	q := Reallocate(p, 64)
	require.NotNil(t, q)
	qb := unsafe.Slice((*byte)(q), 5)
	require.Equal(t, []byte{0, 1, 2, 3, 4}, qb)
	Deallocate(q)
}

func TestReallocateNilBehavesAsAllocate(t *testing.T) {
	p := Reallocate(nil, 32)
	require.NotNil(t, p)
	Deallocate(p)
}

func TestReallocateToZeroFreesAndReturnsNil(t *testing.T) {
	p := Allocate(4096)
	require.NotNil(t, p)
	q := Reallocate(p, 0)
	require.Nil(t, q)
}

func TestReallocateNilZeroReturnsNil(t *testing.T) {
	require.Nil(t, Reallocate(nil, 0))
}

func TestAllocateSequenceDistinctAndFreeable(t *testing.T) {
	var ptrs []unsafe.Pointer
	for i := 1; i <= 10; i++ {
		p := Allocate(uintptr(i))
		require.NotNil(t, p)
		ptrs = append(ptrs, p)
	}

	seen := map[unsafe.Pointer]bool{}
	for _, p := range ptrs {
		require.False(t, seen[p])
		seen[p] = true
	}

	for i := len(ptrs) - 1; i >= 0; i-- {
		Deallocate(ptrs[i])
	}
}
