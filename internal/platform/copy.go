package platform

import "unsafe"

// FastCopy copies n bytes from src to dst. Behaves as if by a byte-wise
// copy; for n at or above the detected SIMD width, the copy is split into
// a bulk part (the largest multiple of SIMDWidth()) and a tail, each moved
// by a single copy() (the Go compiler lowers copy() to a vectorized
// runtime.memmove, so this split exists to keep the call shape aligned
// with the width-tiered contract rather than to hand-roll vector
// instructions). Never reads or writes
// outside [dst, dst+n) or [src, src+n).
func FastCopy(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}

	d := unsafe.Slice((*byte)(dst), n)
	s := unsafe.Slice((*byte)(src), n)

	width := uintptr(SIMDWidth())
	if n < width {
		copy(d, s)
		return
	}

	bulk := n - n%width
	copy(d[:bulk], s[:bulk])
	if bulk < n {
		copy(d[bulk:], s[bulk:])
	}
}
