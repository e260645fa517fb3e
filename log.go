package memory

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// loggerRef holds the installed *zap.SugaredLogger, defaulting to a
// no-op so the allocator never pays for logging unless a caller opts
// in. This generalizes the teacher library's trace-flag
// fmt.Fprintf(os.Stderr, ...) calls into structured, swappable logging.
var loggerRef atomic.Pointer[zap.SugaredLogger]

func init() {
	loggerRef.Store(zap.NewNop().Sugar())
	if poisonEnabled {
		logAllocator().Warn("MEMALLOC_POISON_FREE set: freed blocks will be poisoned before release")
	}
}

// SetLogger installs l as the allocator's diagnostic logger. Passing
// nil restores the no-op default. Safe to call concurrently with
// allocator operations.
func SetLogger(l *zap.Logger) {
	if l == nil {
		loggerRef.Store(zap.NewNop().Sugar())
		return
	}
	loggerRef.Store(l.Sugar())
}

func logAllocator() *zap.SugaredLogger {
	return loggerRef.Load()
}
