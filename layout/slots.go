package layout

import (
	"math"

	typedmem "github.com/wippyai/typedmem"
	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/internal/abi"
)

// VlenHeader is the inline part of a vlen instance.
type VlenHeader struct {
	Len uint32
	Ptr uint32
}

func readWord(mem typedmem.Memory, m catalog.DataModel, addr uint32, what string) (uint32, error) {
	if m.PointerSize() == 4 {
		return mem.ReadU32(addr)
	}
	v, err := mem.ReadU64(addr)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, errors.New(errors.PhaseLayout, errors.KindBadValue).
			Detail("%s %#x at %d does not fit the 32-bit address space", what, v, addr).
			Value(v).
			Build()
	}
	return uint32(v), nil
}

func writeWord(mem typedmem.Memory, m catalog.DataModel, addr, v uint32) error {
	if m.PointerSize() == 4 {
		return mem.WriteU32(addr, v)
	}
	return mem.WriteU64(addr, uint64(v))
}

// ReadPointer loads a pointer slot (a STRING instance, for example).
func ReadPointer(mem typedmem.Memory, m catalog.DataModel, addr uint32) (uint32, error) {
	return readWord(mem, m, addr, "pointer")
}

// WritePointer stores a pointer slot.
func WritePointer(mem typedmem.Memory, m catalog.DataModel, addr, ptr uint32) error {
	return writeWord(mem, m, addr, ptr)
}

// ReadVlen loads the {len, p} header at addr. A length above the element
// limit is reported as bad_value.
func ReadVlen(mem typedmem.Memory, m catalog.DataModel, addr uint32) (VlenHeader, error) {
	n, err := readWord(mem, m, addr, "vlen length")
	if err != nil {
		return VlenHeader{}, err
	}
	if n > abi.MaxVlenLength {
		return VlenHeader{}, errors.New(errors.PhaseLayout, errors.KindBadValue).
			Detail("vlen length %d exceeds %d", n, abi.MaxVlenLength).
			Value(n).
			Build()
	}
	p, err := readWord(mem, m, addr+m.VlenPointerOffset(), "vlen pointer")
	if err != nil {
		return VlenHeader{}, err
	}
	return VlenHeader{Len: n, Ptr: p}, nil
}

// WriteVlen stores a {len, p} header at addr.
func WriteVlen(mem typedmem.Memory, m catalog.DataModel, addr uint32, h VlenHeader) error {
	if err := writeWord(mem, m, addr, h.Len); err != nil {
		return err
	}
	return writeWord(mem, m, addr+m.VlenPointerOffset(), h.Ptr)
}

// ArrayBytes is the size of a buffer holding n elements of size bytes
// each, every element starting at a multiple of align.
func ArrayBytes(n, size, align uint32) (uint32, bool) {
	stride, ok := abi.AlignTo(size, align)
	if !ok {
		return 0, false
	}
	return abi.SafeMulU32(n, stride)
}
