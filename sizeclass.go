// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memory

import "github.com/cznic/mathutil"

// sizeClass describes one entry of the size-class table: a logical
// request size maps to a class index (also the log2 of the block size)
// and the actual block size handed out for it.
type sizeClass struct {
	index     uint // log2(blockSize); also the free-list index.
	blockSize int  // 1 << index.
	large     bool // true once the class would exceed MaxSmall.
}

// MaxSmall is the largest request size served by the free-list path.
// Requests above it are routed to the large-allocation path (largealloc.go).
// It is the largest power of two not above maxSlotSize (half of a shared
// page's usable space), i.e. the largest block size classFor still serves
// from a shared page, matching the teacher library's existing threshold.
var MaxSmall = 1 << (mathutil.BitLen(maxSlotSize) - 1)

// minClassLog is the smallest class index classFor ever returns: 1<<5 ==
// 32 == 2*mallocAllign, the minimum block size spec §3/§4.2 require
// (block_size >= 2*max_align_t). A bare BitLen(roundup(size,16)-1) would
// hand out 16-byte blocks (1*max_align_t) for every request in [1,16];
// flooring the index here keeps every class at least twice max_align_t
// without disturbing the free-list layout for larger classes, which
// already exceed this floor.
const minClassLog = 5

// classFor computes the size class for a strictly positive request.
// Monotonic in size: classFor(s1).blockSize <= classFor(s2).blockSize for
// s1 <= s2, because block sizes are powers of two and the class index is
// the bit length of the rounded-up request, floored at minClassLog.
// Requests exactly on a class boundary round up to that boundary, not
// past it, so the tie-break is always "keep the smaller class."
func classFor(size int) sizeClass {
	log := uint(mathutil.BitLen(roundup(size, mallocAllign) - 1))
	if log < minClassLog {
		log = minClassLog
	}
	bs := 1 << log
	return sizeClass{index: log, blockSize: bs, large: bs > maxSlotSize}
}
