// Package platform collects the OS/CPU-specific constants and primitives
// the allocator builds on: cache-line and SIMD alignment, fences, a pause
// hint for spin loops, and a width-aware byte copy.
package platform

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// OS identifies the host operating system.
type OS int

const (
	Linux OS = iota
	Darwin
	Windows
	UnknownOS
)

func (o OS) String() string {
	switch o {
	case Linux:
		return "linux"
	case Darwin:
		return "darwin"
	case Windows:
		return "windows"
	default:
		return "unknown"
	}
}

// Arch identifies the host CPU architecture.
type Arch int

const (
	AMD64 Arch = iota
	ARM64
	UnknownArch
)

func (a Arch) String() string {
	switch a {
	case AMD64:
		return "amd64"
	case ARM64:
		return "arm64"
	default:
		return "unknown"
	}
}

// Host holds the detected OS, matching exactly one of Linux/Darwin/Windows
// on the target platforms this allocator supports.
var Host = detectOS()

// HostArch holds the detected architecture, matching exactly one of
// AMD64/ARM64 on the target platforms this allocator supports.
var HostArch = detectArch()

func detectOS() OS {
	switch runtime.GOOS {
	case "linux":
		return Linux
	case "darwin":
		return Darwin
	case "windows":
		return Windows
	default:
		return UnknownOS
	}
}

func detectArch() Arch {
	switch runtime.GOARCH {
	case "amd64":
		return AMD64
	case "arm64":
		return ARM64
	default:
		return UnknownArch
	}
}

// CacheLineSize is the L1 cache line size assumed on the supported
// architectures (x86-64 and ARM64 both use 64-byte lines in practice).
const CacheLineSize = 64

// simdWidth is computed once at init from the widest vector instruction
// set the running CPU advertises.
var simdWidth = detectSIMDWidth()

// SIMDWidth returns the widest SIMD register width, in bytes, usable on
// the current CPU: 64 under AVX-512F, 32 under AVX2, 16 otherwise
// (SSE2/NEON baseline).
func SIMDWidth() int { return simdWidth }

func detectSIMDWidth() int {
	switch HostArch {
	case ARM64:
		return 16
	case AMD64:
		switch {
		case cpuid.CPU.Supports(cpuid.AVX512F):
			return 64
		case cpuid.CPU.Supports(cpuid.AVX2):
			return 32
		default:
			return 16
		}
	default:
		return 16
	}
}

// Likely and Unlikely are branch-hint annotations. Go has no compiler
// intrinsic for this; they exist purely so call sites read the same as
// the spec they were ported from, and are free to be optimized away.
func Likely(cond bool) bool   { return cond }
func Unlikely(cond bool) bool { return cond }
