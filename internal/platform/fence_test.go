package platform

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFences exercises the StoreFence/LoadFence/Pause handoff between a
// producer and a consumer goroutine, mirroring the publish/observe
// pattern the allocator uses when sharing a freshly carved chunk.
func TestFences(t *testing.T) {
	var value int64
	var ready int32

	done := make(chan struct{})
	go func() {
		atomic.StoreInt64(&value, 42)
		StoreFence()
		atomic.StoreInt32(&ready, 1)
		close(done)
	}()

	for atomic.LoadInt32(&ready) == 0 {
		Pause()
	}
	LoadFence()
	<-done

	require.EqualValues(t, 42, atomic.LoadInt64(&value))
}

func TestFenceIsHarmlessAlone(t *testing.T) {
	require.NotPanics(t, Fence)
}
