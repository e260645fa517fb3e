package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLargeAllocRoutesAboveMaxSmall(t *testing.T) {
	var a Allocator
	defer a.Close()

	b, err := a.Malloc(MaxSmall + 1)
	require.NoError(t, err)
	require.Equal(t, 1, a.LargeAllocCount())
	require.GreaterOrEqual(t, a.LargeAllocBytes(), MaxSmall+1)

	require.NoError(t, a.Free(b))
	require.Equal(t, 0, a.LargeAllocCount())
}

func TestLargeAllocOneGiBSucceeds(t *testing.T) {
	if testing.Short() {
		t.Skip("reserves 1GiB of address space")
	}

	var a Allocator
	defer a.Close()

	const oneGiB = 1 << 30
	b, err := a.Malloc(oneGiB)
	require.NoError(t, err)
	require.Len(t, b, oneGiB)
	require.NoError(t, a.Free(b))
}

func TestLargeReallocCopiesContent(t *testing.T) {
	var a Allocator
	defer a.Close()

	b, err := a.Malloc(MaxSmall + 16)
	require.NoError(t, err)
	for i := range b[:5] {
		b[i] = byte(i + 1)
	}

	r, err := a.Realloc(b, MaxSmall+4096)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, r[:5])
	require.NoError(t, a.Free(r))
}
