package instance

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/heap"
	"github.com/wippyai/typedmem/layout"
)

// dumper renders instances:
//
//	integers   decimal
//	CHAR       'c'
//	floats     fixed point, six decimals
//	STRING     "text" or NULL
//	OPAQUE     |hex|
//	VLEN       {len=n,p=(e0 e1 ...)}
//	COMPOUND   <name[d1][d2]v0 v1 ...;name2 v>
type dumper struct {
	e   *Engine
	out strings.Builder
}

func (d *dumper) fixed(at addrs, info catalog.TypeInfo) error {
	h := d.e.heap
	if info.Class == catalog.ClassOpaque {
		data, err := h.Read(at.src, info.Size)
		if err != nil {
			return err
		}
		d.out.WriteByte('|')
		d.out.WriteString(hex.EncodeToString(data))
		d.out.WriteByte('|')
		return nil
	}

	var (
		s   string
		err error
	)
	switch info.ID {
	case catalog.Byte:
		var v uint8
		v, err = h.ReadU8(at.src)
		s = strconv.FormatInt(int64(int8(v)), 10)
	case catalog.Char:
		var v uint8
		v, err = h.ReadU8(at.src)
		s = "'" + string([]byte{v}) + "'"
	case catalog.Short:
		var v uint16
		v, err = h.ReadU16(at.src)
		s = strconv.FormatInt(int64(int16(v)), 10)
	case catalog.Int:
		var v uint32
		v, err = h.ReadU32(at.src)
		s = strconv.FormatInt(int64(int32(v)), 10)
	case catalog.Int64:
		var v uint64
		v, err = h.ReadU64(at.src)
		s = strconv.FormatInt(int64(v), 10)
	case catalog.UByte:
		var v uint8
		v, err = h.ReadU8(at.src)
		s = strconv.FormatUint(uint64(v), 10)
	case catalog.UShort:
		var v uint16
		v, err = h.ReadU16(at.src)
		s = strconv.FormatUint(uint64(v), 10)
	case catalog.UInt:
		var v uint32
		v, err = h.ReadU32(at.src)
		s = strconv.FormatUint(uint64(v), 10)
	case catalog.UInt64:
		var v uint64
		v, err = h.ReadU64(at.src)
		s = strconv.FormatUint(v, 10)
	case catalog.Float:
		var v uint32
		v, err = h.ReadU32(at.src)
		s = strconv.FormatFloat(float64(math.Float32frombits(v)), 'f', 6, 64)
	case catalog.Double:
		var v uint64
		v, err = h.ReadU64(at.src)
		s = strconv.FormatFloat(math.Float64frombits(v), 'f', 6, 64)
	default:
		return errors.New(errors.PhaseDump, errors.KindBadType).
			Type(info.Name).
			Detail("no rendering for atomic %d", info.ID).
			Build()
	}
	if err != nil {
		return err
	}
	d.out.WriteString(s)
	return nil
}

// fixedRun declines: every instance is rendered.
func (d *dumper) fixedRun(addrs, uint32) (bool, error) {
	return false, nil
}

func (d *dumper) str(at addrs) error {
	ptr, err := layout.ReadPointer(d.e.heap, d.e.model, at.src)
	if err != nil {
		return err
	}
	if ptr == 0 {
		d.out.WriteString("NULL")
		return nil
	}
	s, err := heap.ReadCString(d.e.heap, ptr)
	if err != nil {
		return err
	}
	d.out.WriteByte('"')
	d.out.Write(s)
	d.out.WriteByte('"')
	return nil
}

func (d *dumper) vlenEnter(at addrs, info catalog.TypeInfo, align uint32) (vlenFrame, error) {
	h, err := layout.ReadVlen(d.e.heap, d.e.model, at.src)
	if err != nil {
		return vlenFrame{}, err
	}
	if h.Len > 0 && h.Ptr == 0 {
		return vlenFrame{}, nullVlen(errors.PhaseDump, info, h.Len)
	}
	d.out.WriteString("{len=")
	d.out.WriteString(strconv.FormatUint(uint64(h.Len), 10))
	d.out.WriteString(",p=(")
	return vlenFrame{info: info, n: h.Len, src: h.Ptr, align: align}, nil
}

func (d *dumper) vlenExit(_ addrs, _ *vlenFrame, walkErr error) error {
	if walkErr != nil {
		return walkErr
	}
	d.out.WriteString(")}")
	return nil
}

func (d *dumper) compoundEnter(catalog.TypeInfo) {
	d.out.WriteByte('<')
}

func (d *dumper) field(i int, f catalog.Field) {
	if i > 0 {
		d.out.WriteByte(';')
	}
	d.out.WriteString(f.Name)
	for _, dim := range f.Dims {
		d.out.WriteByte('[')
		d.out.WriteString(strconv.FormatUint(uint64(dim), 10))
		d.out.WriteByte(']')
	}
}

func (d *dumper) compoundExit() {
	d.out.WriteByte('>')
}

func (d *dumper) separator() {
	d.out.WriteByte(' ')
}
