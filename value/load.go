package value

import (
	"math"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/heap"
	"github.com/wippyai/typedmem/internal/abi"
	"github.com/wippyai/typedmem/layout"
)

func (c *Codec) load(cid catalog.ContainerID, tid catalog.TypeID, addr uint32) (any, error) {
	info, err := c.cat.DescribeType(cid, tid)
	if err != nil {
		return nil, err
	}
	switch info.Class {
	case catalog.ClassAtomic:
		return c.loadAtomic(info, addr)
	case catalog.ClassEnum:
		return c.loadEnum(cid, info, addr)
	case catalog.ClassOpaque:
		data, err := c.heap.Read(addr, info.Size)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), data...), nil
	case catalog.ClassVlen:
		return c.loadVlen(cid, info, addr)
	case catalog.ClassCompound:
		return c.loadCompound(cid, info, addr)
	}
	return nil, errors.New(errors.PhaseLoad, errors.KindBadType).
		Type(info.Name).
		Detail("unknown type class %s", info.Class).
		Build()
}

func (c *Codec) loadAtomic(info catalog.TypeInfo, addr uint32) (any, error) {
	h := c.heap
	switch info.ID {
	case catalog.String:
		p, err := layout.ReadPointer(h, c.model, addr)
		if err != nil || p == 0 {
			return nil, err
		}
		s, err := heap.ReadCString(h, p)
		if err != nil {
			return nil, err
		}
		return string(s), nil
	case catalog.Char:
		v, err := h.ReadU8(addr)
		return string([]byte{v}), err
	case catalog.Byte:
		v, err := h.ReadU8(addr)
		return int8(v), err
	case catalog.UByte:
		return h.ReadU8(addr)
	case catalog.Short:
		v, err := h.ReadU16(addr)
		return int16(v), err
	case catalog.UShort:
		return h.ReadU16(addr)
	case catalog.Int:
		v, err := h.ReadU32(addr)
		return int32(v), err
	case catalog.UInt:
		return h.ReadU32(addr)
	case catalog.Int64:
		v, err := h.ReadU64(addr)
		return int64(v), err
	case catalog.UInt64:
		return h.ReadU64(addr)
	case catalog.Float:
		v, err := h.ReadU32(addr)
		return math.Float32frombits(v), err
	case catalog.Double:
		v, err := h.ReadU64(addr)
		return math.Float64frombits(v), err
	}
	return nil, errors.New(errors.PhaseLoad, errors.KindBadType).
		Type(info.Name).
		Detail("no conversion for atomic %d", info.ID).
		Build()
}

// loadEnum returns the member name when the value has one, the base
// integer otherwise.
func (c *Codec) loadEnum(cid catalog.ContainerID, info catalog.TypeInfo, addr uint32) (any, error) {
	base, err := c.cat.DescribeType(cid, info.Base)
	if err != nil {
		return nil, err
	}
	v, err := c.loadAtomic(base, addr)
	if err != nil {
		return nil, err
	}
	n, ok := abi.CoerceToInt64(v)
	if !ok {
		return v, nil
	}
	for _, m := range c.members(cid, info.ID) {
		if m.Value == n {
			return m.Name, nil
		}
	}
	return v, nil
}

func (c *Codec) loadVlen(cid catalog.ContainerID, info catalog.TypeInfo, addr uint32) (any, error) {
	h, err := layout.ReadVlen(c.heap, c.model, addr)
	if err != nil {
		return nil, err
	}
	if h.Len == 0 {
		return []any{}, nil
	}
	if h.Ptr == 0 {
		return nil, errors.New(errors.PhaseLoad, errors.KindBadValue).
			Type(info.Name).
			Detail("vlen length %d with null pointer", h.Len).
			Value(h.Len).
			Build()
	}
	elem, err := c.cat.DescribeType(cid, info.Base)
	if err != nil {
		return nil, err
	}
	align, err := c.align.AlignmentOf(cid, info.Base)
	if err != nil {
		return nil, err
	}
	if _, ok := layout.ArrayBytes(h.Len, elem.Size, align); !ok {
		return nil, errors.Overflow(errors.PhaseLoad, "vlen element buffer")
	}
	stride, _ := abi.AlignTo(elem.Size, align)
	out := make([]any, h.Len)
	for i := range out {
		if out[i], err = c.load(cid, info.Base, h.Ptr+uint32(i)*stride); err != nil {
			return nil, errors.WithinIndex(err, uint32(i))
		}
	}
	return out, nil
}

func (c *Codec) loadCompound(cid catalog.ContainerID, info catalog.TypeInfo, addr uint32) (any, error) {
	out := make(map[string]any, info.FieldCount)
	for i := 0; i < info.FieldCount; i++ {
		f, err := c.cat.DescribeField(cid, info.ID, i)
		if err != nil {
			return nil, err
		}
		v, err := c.loadField(cid, f, addr+f.Offset)
		if err != nil {
			return nil, errors.Within(err, f.Name)
		}
		out[f.Name] = v
	}
	return out, nil
}

func (c *Codec) loadField(cid catalog.ContainerID, f catalog.Field, addr uint32) (any, error) {
	if !f.IsArray() {
		return c.load(cid, f.Type, addr)
	}
	ft, err := c.cat.DescribeType(cid, f.Type)
	if err != nil {
		return nil, err
	}
	n, ok := f.Extent()
	if !ok {
		return nil, errors.Overflow(errors.PhaseLoad, "field "+f.Name+" extent")
	}
	flat := make([]any, n)
	for j := range flat {
		if flat[j], err = c.load(cid, f.Type, addr+uint32(j)*ft.Size); err != nil {
			return nil, errors.WithinIndex(err, uint32(j))
		}
	}
	return shape(flat, f.Dims), nil
}

// shape nests a flat row-major slice to the given dimensions.
func shape(flat []any, dims []uint32) []any {
	if len(dims) <= 1 {
		return flat
	}
	out := make([]any, dims[0])
	chunk := len(flat) / int(dims[0])
	for i := range out {
		out[i] = shape(flat[i*chunk:(i+1)*chunk], dims[1:])
	}
	return out
}
