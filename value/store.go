package value

import (
	"bytes"
	"encoding/hex"
	"math"
	"reflect"

	"github.com/spf13/cast"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/heap"
	"github.com/wippyai/typedmem/internal/abi"
	"github.com/wippyai/typedmem/layout"
)

func (c *Codec) store(cid catalog.ContainerID, tid catalog.TypeID, addr uint32, v any) error {
	info, err := c.cat.DescribeType(cid, tid)
	if err != nil {
		return err
	}
	switch info.Class {
	case catalog.ClassAtomic:
		if tid == catalog.String {
			return c.storeString(addr, v)
		}
		return c.storeAtomic(info, addr, v)
	case catalog.ClassEnum:
		return c.storeEnum(cid, info, addr, v)
	case catalog.ClassOpaque:
		return c.storeOpaque(info, addr, v)
	case catalog.ClassVlen:
		return c.storeVlen(cid, info, addr, v)
	case catalog.ClassCompound:
		return c.storeCompound(cid, info, addr, v)
	}
	return errors.New(errors.PhaseStore, errors.KindBadType).
		Type(info.Name).
		Detail("unknown type class %s", info.Class).
		Build()
}

func mismatch(v any, info catalog.TypeInfo) error {
	return errors.TypeMismatch(errors.PhaseStore, nil, abi.TypeName(v), info.Name)
}

func outOfRange(v any, info catalog.TypeInfo) error {
	return errors.New(errors.PhaseStore, errors.KindBadValue).
		Type(info.Name).
		Detail("%v out of range", v).
		Value(v).
		Build()
}

func (c *Codec) storeAtomic(info catalog.TypeInfo, addr uint32, v any) error {
	id := info.ID
	switch {
	case id == catalog.Char:
		if s, ok := v.(string); ok {
			if len(s) != 1 {
				return outOfRange(v, info)
			}
			return c.heap.WriteU8(addr, s[0])
		}
		u, ok := abi.CoerceToUint64(v)
		if !ok {
			return mismatch(v, info)
		}
		if !abi.FitsUnsigned(u, 8) {
			return outOfRange(v, info)
		}
		return c.heap.WriteU8(addr, uint8(u))

	case id == catalog.Float || id == catalog.Double:
		if _, isBool := v.(bool); isBool || v == nil {
			return mismatch(v, info)
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return mismatch(v, info)
		}
		if id == catalog.Float {
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return outOfRange(v, info)
			}
			return c.heap.WriteU32(addr, math.Float32bits(float32(f)))
		}
		return c.heap.WriteU64(addr, math.Float64bits(f))

	case id.IsSigned():
		n, ok := abi.CoerceToInt64(v)
		if !ok {
			s, isStr := v.(string)
			if !isStr {
				if _, big := abi.CoerceToUint64(v); big {
					return outOfRange(v, info)
				}
				return mismatch(v, info)
			}
			var err error
			if n, err = cast.ToInt64E(s); err != nil {
				return mismatch(v, info)
			}
		}
		if !abi.FitsSigned(n, info.Size*8) {
			return outOfRange(v, info)
		}
		return c.writeInt(addr, info.Size, uint64(n))

	case id.IsInteger():
		n, ok := abi.CoerceToUint64(v)
		if !ok {
			s, isStr := v.(string)
			if !isStr {
				if _, signed := abi.CoerceToInt64(v); signed {
					return outOfRange(v, info)
				}
				return mismatch(v, info)
			}
			var err error
			if n, err = cast.ToUint64E(s); err != nil {
				return mismatch(v, info)
			}
		}
		if !abi.FitsUnsigned(n, info.Size*8) {
			return outOfRange(v, info)
		}
		return c.writeInt(addr, info.Size, n)
	}
	return errors.New(errors.PhaseStore, errors.KindBadType).
		Type(info.Name).
		Detail("no conversion for atomic %d", id).
		Build()
}

func (c *Codec) writeInt(addr, size uint32, bits uint64) error {
	switch size {
	case 1:
		return c.heap.WriteU8(addr, uint8(bits))
	case 2:
		return c.heap.WriteU16(addr, uint16(bits))
	case 4:
		return c.heap.WriteU32(addr, uint32(bits))
	default:
		return c.heap.WriteU64(addr, bits)
	}
}

func (c *Codec) storeString(addr uint32, v any) error {
	var s []byte
	switch x := v.(type) {
	case nil:
		return layout.WritePointer(c.heap, c.model, addr, 0)
	case string:
		s = []byte(x)
	case []byte:
		s = x
	default:
		return errors.TypeMismatch(errors.PhaseStore, nil, abi.TypeName(v), "string")
	}
	if bytes.IndexByte(s, 0) >= 0 {
		return errors.New(errors.PhaseStore, errors.KindBadValue).
			Type("string").
			Detail("string contains a NUL byte").
			Build()
	}
	if len(s) >= abi.MaxStringSize {
		return errors.New(errors.PhaseStore, errors.KindBadValue).
			Type("string").
			Detail("string of %d bytes exceeds %d", len(s), abi.MaxStringSize).
			Build()
	}
	n := uint32(len(s)) + 1
	p, err := c.heap.Alloc(n, 1)
	if err != nil {
		return errors.AllocationFailed(errors.PhaseStore, n, 1, err)
	}
	if err := heap.WriteCString(c.heap, p, s); err != nil {
		c.heap.Free(p, n, 1)
		return err
	}
	if err := layout.WritePointer(c.heap, c.model, addr, p); err != nil {
		c.heap.Free(p, n, 1)
		return err
	}
	return nil
}

func (c *Codec) storeEnum(cid catalog.ContainerID, info catalog.TypeInfo, addr uint32, v any) error {
	base, err := c.cat.DescribeType(cid, info.Base)
	if err != nil {
		return err
	}
	name, ok := v.(string)
	if !ok {
		return c.storeAtomic(base, addr, v)
	}
	for _, m := range c.members(cid, info.ID) {
		if m.Name == name {
			return c.storeAtomic(base, addr, m.Value)
		}
	}
	return errors.New(errors.PhaseStore, errors.KindNotFound).
		Type(info.Name).
		Detail("enum has no member %q", name).
		Value(name).
		Build()
}

func (c *Codec) storeOpaque(info catalog.TypeInfo, addr uint32, v any) error {
	var data []byte
	switch x := v.(type) {
	case []byte:
		data = x
	case string:
		var err error
		if data, err = hex.DecodeString(x); err != nil {
			return errors.New(errors.PhaseStore, errors.KindBadValue).
				Type(info.Name).
				Detail("opaque value is not hex").
				Cause(err).
				Build()
		}
	default:
		return mismatch(v, info)
	}
	if uint32(len(data)) != info.Size {
		return errors.New(errors.PhaseStore, errors.KindBadValue).
			Type(info.Name).
			Detail("opaque needs %d bytes, got %d", info.Size, len(data)).
			Build()
	}
	return c.heap.Write(addr, data)
}

// elements returns the items of a Go slice or array.
func elements(v any) ([]any, bool) {
	if v == nil {
		return nil, true
	}
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// storeVlen links the element buffer before filling it, so a failure
// part way leaves a header the reclaimer can follow.
func (c *Codec) storeVlen(cid catalog.ContainerID, info catalog.TypeInfo, addr uint32, v any) error {
	list, ok := elements(v)
	if !ok {
		return mismatch(v, info)
	}
	if len(list) == 0 {
		return layout.WriteVlen(c.heap, c.model, addr, layout.VlenHeader{})
	}
	if len(list) > abi.MaxVlenLength {
		return outOfRange(len(list), info)
	}
	n := uint32(len(list))

	elem, err := c.cat.DescribeType(cid, info.Base)
	if err != nil {
		return err
	}
	align, err := c.align.AlignmentOf(cid, info.Base)
	if err != nil {
		return err
	}
	stride, ok := abi.AlignTo(elem.Size, align)
	size, ok2 := layout.ArrayBytes(n, elem.Size, align)
	if !ok || !ok2 {
		return outOfRange(len(list), info)
	}
	p, err := c.heap.Alloc(size, align)
	if err != nil {
		return errors.AllocationFailed(errors.PhaseStore, size, align, err)
	}
	if err := heap.Zero(c.heap, p, size); err != nil {
		c.heap.Free(p, size, align)
		return err
	}
	if err := layout.WriteVlen(c.heap, c.model, addr, layout.VlenHeader{Len: n, Ptr: p}); err != nil {
		c.heap.Free(p, size, align)
		return err
	}
	for i, item := range list {
		if err := c.store(cid, info.Base, p+uint32(i)*stride, item); err != nil {
			return errors.WithinIndex(err, uint32(i))
		}
	}
	return nil
}

func fieldMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, x := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = x
		}
		return out, true
	}
	return nil, false
}

func (c *Codec) storeCompound(cid catalog.ContainerID, info catalog.TypeInfo, addr uint32, v any) error {
	m, ok := fieldMap(v)
	if !ok {
		return mismatch(v, info)
	}
	known := make(map[string]bool, info.FieldCount)
	for i := 0; i < info.FieldCount; i++ {
		f, err := c.cat.DescribeField(cid, info.ID, i)
		if err != nil {
			return err
		}
		known[f.Name] = true
		x, present := m[f.Name]
		if !present {
			continue
		}
		if err := c.storeField(cid, f, addr+f.Offset, x); err != nil {
			return errors.Within(err, f.Name)
		}
	}
	for k := range m {
		if !known[k] {
			return errors.New(errors.PhaseStore, errors.KindNotFound).
				Type(info.Name).
				Detail("no field %q", k).
				Value(k).
				Build()
		}
	}
	return nil
}

func (c *Codec) storeField(cid catalog.ContainerID, f catalog.Field, addr uint32, v any) error {
	if !f.IsArray() {
		return c.store(cid, f.Type, addr, v)
	}
	ft, err := c.cat.DescribeType(cid, f.Type)
	if err != nil {
		return err
	}
	flat, ok := flatten(v, f.Dims)
	if !ok {
		return errors.New(errors.PhaseStore, errors.KindBadValue).
			Type(ft.Name).
			Detail("value does not match dimensions %v", f.Dims).
			Build()
	}
	for j, item := range flat {
		if err := c.store(cid, f.Type, addr+uint32(j)*ft.Size, item); err != nil {
			return errors.WithinIndex(err, uint32(j))
		}
	}
	return nil
}

// flatten accepts slices nested to the field's rank or one flat slice of
// the full extent.
func flatten(v any, dims []uint32) ([]any, bool) {
	if out, ok := nested(v, dims); ok {
		return out, true
	}
	list, ok := elements(v)
	if !ok || v == nil {
		return nil, false
	}
	extent, ok := catalog.Field{Dims: dims}.Extent()
	if !ok || uint64(len(list)) != uint64(extent) {
		return nil, false
	}
	return list, true
}

func nested(v any, dims []uint32) ([]any, bool) {
	list, ok := elements(v)
	if !ok || v == nil || uint32(len(list)) != dims[0] {
		return nil, false
	}
	if len(dims) == 1 {
		return list, true
	}
	var out []any
	for _, item := range list {
		inner, ok := nested(item, dims[1:])
		if !ok {
			return nil, false
		}
		out = append(out, inner...)
	}
	return out, true
}
