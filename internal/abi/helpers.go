package abi

import "math"

func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

// AlignTo rounds offset up to a multiple of align. Zero and one are no-ops;
// align need not be a power of two.
func AlignTo(offset, align uint32) (uint32, bool) {
	if align <= 1 {
		return offset, true
	}
	rem := offset % align
	if rem == 0 {
		return offset, true
	}
	return SafeAddU32(offset, align-rem)
}

const (
	MaxStringSize = 1 << 30 // 1 GB max string size
	MaxVlenLength = 1 << 27 // 128M max elements
	MaxAlloc      = 1 << 30 // 1 GB max single allocation
)
