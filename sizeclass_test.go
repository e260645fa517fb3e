package memory

import (
	"testing"

	"github.com/cznic/mathutil"
	"github.com/stretchr/testify/require"
)

func TestClassForMonotonic(t *testing.T) {
	prev := classFor(1)
	for s := 2; s <= MaxSmall*2; s++ {
		cur := classFor(s)
		require.GreaterOrEqualf(t, cur.blockSize, prev.blockSize, "size %d", s)
		prev = cur
	}
}

func TestClassForBlockSizeCoversRequest(t *testing.T) {
	for _, s := range []int{1, 2, 3, 15, 16, 17, 63, 64, 65, 1023, 1024, 1025} {
		sc := classFor(s)
		if sc.large {
			continue
		}
		require.GreaterOrEqualf(t, sc.blockSize, s, "size %d", s)
		require.GreaterOrEqual(t, sc.blockSize, 2*mallocAllign)
	}
}

func TestClassForMatchesBitLen(t *testing.T) {
	for _, s := range []int{1, 16, 17, 100, 512, 1000} {
		want := uint(mathutil.BitLen(roundup(s, mallocAllign) - 1))
		if want < minClassLog {
			want = minClassLog
		}
		got := classFor(s).index
		require.Equal(t, want, got, "size %d", s)
	}
}

func TestClassForMinimumBlockSizeIsTwiceMaxAlign(t *testing.T) {
	for _, s := range []int{1, 2, 3, 15, 16} {
		sc := classFor(s)
		require.Equal(t, 2*mallocAllign, sc.blockSize, "size %d", s)
	}
}

func TestClassForBoundaryPrefersSmallerClass(t *testing.T) {
	// A size that exactly equals a power-of-two block size must map to
	// that class, not the next one up.
	sc := classFor(64)
	require.Equal(t, 64, sc.blockSize)
}

func TestClassForAboveMaxSmallIsLarge(t *testing.T) {
	require.True(t, classFor(MaxSmall+1).large)
	require.False(t, classFor(MaxSmall).large)
}
