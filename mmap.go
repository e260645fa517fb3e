package memory

import "os"

// pageSize is the granularity a chunk is mmap'd at: one OS page. Every
// mmap'd region the allocator holds is therefore both OS-page-aligned
// (guaranteed by mmap/MapViewOfFile) and a multiple of pageSize, which
// is what lets Free recover a block's owning page by masking off the
// low bits of its pointer.
var pageSize = os.Getpagesize()

// mmap rounds size up to a whole number of pages and hands it to the
// platform-specific mmap0.
func mmap(size int) ([]byte, error) {
	return mmap0(roundup(size, pageSize))
}
