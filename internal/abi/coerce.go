package abi

import (
	"fmt"
	"math"
)

// CoerceToInt64 accepts any Go integer, or a float holding an integral
// value, that fits in int64.
func CoerceToInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), true
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case float64:
		if v >= math.MinInt64 && v < math.MaxInt64 && v == math.Trunc(v) {
			return int64(v), true
		}
	case float32:
		f := float64(v)
		if f >= math.MinInt64 && f < math.MaxInt64 && f == math.Trunc(f) {
			return int64(f), true
		}
	}
	return 0, false
}

// CoerceToUint64 accepts any non-negative Go integer, or a float holding a
// non-negative integral value, that fits in uint64.
func CoerceToUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint:
		return uint64(v), true
	case int8:
		if v >= 0 {
			return uint64(v), true
		}
	case int16:
		if v >= 0 {
			return uint64(v), true
		}
	case int32:
		if v >= 0 {
			return uint64(v), true
		}
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	case float64:
		if v >= 0 && v < math.MaxUint64 && v == math.Trunc(v) {
			return uint64(v), true
		}
	case float32:
		f := float64(v)
		if f >= 0 && f < math.MaxUint64 && f == math.Trunc(f) {
			return uint64(f), true
		}
	}
	return 0, false
}

// FitsSigned reports whether v is representable in a two's complement
// integer of the given width.
func FitsSigned(v int64, bits uint32) bool {
	if bits >= 64 {
		return true
	}
	lim := int64(1) << (bits - 1)
	return v >= -lim && v < lim
}

// FitsUnsigned reports whether v is representable in bits.
func FitsUnsigned(v uint64, bits uint32) bool {
	if bits >= 64 {
		return true
	}
	return v < uint64(1)<<bits
}

// TypeName names the dynamic Go type of v for error messages.
func TypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
