package catalog

import "github.com/wippyai/typedmem/errors"

// DataModel fixes the width of the pointer-bearing slots: STRING slots and
// the {len, p} header of a vlen instance.
type DataModel uint8

const (
	// LP64: 8-byte pointers, vlen header {len u64 @0, p u64 @8}.
	LP64 DataModel = iota
	// ILP32: 4-byte pointers, vlen header {len u32 @0, p u32 @4}.
	ILP32
)

func (m DataModel) String() string {
	switch m {
	case LP64:
		return "lp64"
	case ILP32:
		return "ilp32"
	default:
		return "unknown"
	}
}

// ParseDataModel accepts the names produced by String.
func ParseDataModel(s string) (DataModel, error) {
	switch s {
	case "lp64", "LP64", "":
		return LP64, nil
	case "ilp32", "ILP32":
		return ILP32, nil
	}
	return LP64, errors.New(errors.PhaseCatalog, errors.KindInvalidArgument).
		Detail("unknown data model %q", s).
		Value(s).
		Build()
}

// PointerSize is the width of a pointer slot.
func (m DataModel) PointerSize() uint32 {
	if m == ILP32 {
		return 4
	}
	return 8
}

// VlenHeaderSize is the inline size of a vlen instance.
func (m DataModel) VlenHeaderSize() uint32 {
	return 2 * m.PointerSize()
}

// VlenPointerOffset is where p sits inside the vlen header.
func (m DataModel) VlenPointerOffset() uint32 {
	return m.PointerSize()
}

// AtomicSize returns the byte size of an atomic type under m.
func (m DataModel) AtomicSize(id TypeID) (uint32, bool) {
	switch id {
	case Byte, Char, UByte:
		return 1, true
	case Short, UShort:
		return 2, true
	case Int, UInt, Float:
		return 4, true
	case Double, Int64, UInt64:
		return 8, true
	case String:
		return m.PointerSize(), true
	}
	return 0, false
}
