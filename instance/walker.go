package instance

import (
	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/internal/abi"
	"github.com/wippyai/typedmem/layout"
)

// addrs is the current instance address in the source and, for copy, the
// destination.
type addrs struct {
	src, dst uint32
}

// vlenFrame carries one vlen's element buffers from enter to exit.
type vlenFrame struct {
	info  catalog.TypeInfo
	n     uint32
	src   uint32
	dst   uint32
	bytes uint32 // element buffer size
	align uint32 // element alignment
}

// strategy is what a walk does at each point of the traversal. The walker
// owns cursor movement; strategies only read and write at the addresses
// they are given.
type strategy interface {
	// fixed handles a non-string atomic or an opaque blob.
	fixed(at addrs, info catalog.TypeInfo) error
	// fixedRun handles n bytes of fixed-size instances in one step. It
	// reports false when the walk must visit each instance instead.
	fixedRun(at addrs, n uint32) (bool, error)
	str(at addrs) error
	// vlenEnter reads the header and returns the element buffers to walk.
	vlenEnter(at addrs, info catalog.TypeInfo, elemAlign uint32) (vlenFrame, error)
	// vlenExit runs after the elements, with walkErr set if one failed.
	vlenExit(at addrs, f *vlenFrame, walkErr error) error
	compoundEnter(info catalog.TypeInfo)
	field(i int, f catalog.Field)
	compoundExit()
	separator()
}

// nopStrategy lets strategies implement only the hooks they need.
type nopStrategy struct{}

func (nopStrategy) fixed(addrs, catalog.TypeInfo) error { return nil }
func (nopStrategy) fixedRun(addrs, uint32) (bool, error) { return false, nil }
func (nopStrategy) str(addrs) error { return nil }
func (nopStrategy) compoundEnter(catalog.TypeInfo) {}
func (nopStrategy) field(int, catalog.Field) {}
func (nopStrategy) compoundExit() {}
func (nopStrategy) separator() {}

// position is a pair of cursors moving in lockstep. dst is unused by walks
// that only read.
type position struct {
	src, dst layout.Cursor
}

func newPosition(src, dst uint32) position {
	return position{src: layout.NewCursor(src), dst: layout.NewCursor(dst)}
}

func (p *position) at() (addrs, error) {
	src, err := p.src.At()
	if err != nil {
		return addrs{}, err
	}
	dst, err := p.dst.At()
	if err != nil {
		return addrs{}, err
	}
	return addrs{src: src, dst: dst}, nil
}

func (p *position) advance(n uint32) error {
	if err := p.src.Advance(n); err != nil {
		return err
	}
	return p.dst.Advance(n)
}

func (p *position) alignTo(a uint32) error {
	if err := p.src.AlignTo(a); err != nil {
		return err
	}
	return p.dst.AlignTo(a)
}

func (p *position) offsets() (uint32, uint32) {
	return p.src.Offset, p.dst.Offset
}

func (p *position) seek(src, dst, delta uint32) error {
	if err := p.src.SeekFrom(src, delta); err != nil {
		return err
	}
	return p.dst.SeekFrom(dst, delta)
}

type walker struct {
	e   *Engine
	s   strategy
	cid catalog.ContainerID
}

func (e *Engine) walker(cid catalog.ContainerID, s strategy) *walker {
	return &walker{e: e, s: s, cid: cid}
}

// vector walks count contiguous instances of tid.
func (w *walker) vector(tid catalog.TypeID, src, dst, count uint32) error {
	p := newPosition(src, dst)
	for i := uint32(0); i < count; i++ {
		if i > 0 {
			w.s.separator()
		}
		if err := w.instance(&p, tid); err != nil {
			return errors.WithinIndex(err, i)
		}
	}
	return nil
}

// elements walks n instances of tid, each aligned to align.
func (w *walker) elements(tid catalog.TypeID, src, dst, n, align uint32) error {
	p := newPosition(src, dst)
	if done, err := w.fixedRun(&p, tid, n, align); err != nil || done {
		return err
	}
	for i := uint32(0); i < n; i++ {
		if i > 0 {
			w.s.separator()
		}
		if err := p.alignTo(align); err != nil {
			return err
		}
		if err := w.instance(&p, tid); err != nil {
			return errors.WithinIndex(err, i)
		}
	}
	return nil
}

// instance visits one instance of tid at p and leaves p just past it.
func (w *walker) instance(p *position, tid catalog.TypeID) error {
	info, err := w.e.cat.DescribeType(w.cid, tid)
	if err != nil {
		return err
	}

	switch info.Class {
	case catalog.ClassEnum:
		// same bytes as the base integer
		return w.instance(p, info.Base)
	case catalog.ClassVlen:
		return w.vlen(p, info)
	case catalog.ClassCompound:
		return w.compound(p, info)
	case catalog.ClassAtomic, catalog.ClassOpaque:
		at, err := p.at()
		if err != nil {
			return err
		}
		if info.ID == catalog.String {
			err = w.s.str(at)
		} else {
			err = w.s.fixed(at, info)
		}
		if err != nil {
			return err
		}
		return p.advance(info.Size)
	default:
		return errors.New(errors.PhaseLayout, errors.KindBadType).
			Type(info.Name).
			Detail("unknown type class %s", info.Class).
			Build()
	}
}

func (w *walker) vlen(p *position, info catalog.TypeInfo) error {
	at, err := p.at()
	if err != nil {
		return err
	}
	align, err := w.e.align.AlignmentOf(w.cid, info.Base)
	if err != nil {
		return err
	}
	f, err := w.s.vlenEnter(at, info, align)
	if err != nil {
		return err
	}
	var walkErr error
	if f.n > 0 {
		walkErr = w.elements(info.Base, f.src, f.dst, f.n, f.align)
	}
	if err := w.s.vlenExit(at, &f, walkErr); err != nil {
		return err
	}
	return p.advance(info.Size)
}

// compound seeks each field from the instance start rather than trusting
// the cursor after the previous field, so padding and out-of-order
// offsets are honoured.
func (w *walker) compound(p *position, info catalog.TypeInfo) error {
	src, dst := p.offsets()
	w.s.compoundEnter(info)
	for i := 0; i < info.FieldCount; i++ {
		f, err := w.e.cat.DescribeField(w.cid, info.ID, i)
		if err != nil {
			return err
		}
		w.s.field(i, f)
		if err := p.seek(src, dst, f.Offset); err != nil {
			return err
		}
		n, ok := f.Extent()
		if !ok {
			return errors.New(errors.PhaseLayout, errors.KindBadType).
				Type(info.Name).
				Detail("field %q dims %v overflow", f.Name, f.Dims).
				Build()
		}
		done, err := w.fixedRun(p, f.Type, n, 1)
		if err != nil {
			return errors.Within(err, f.Name)
		}
		if done {
			continue
		}
		for j := uint32(0); j < n; j++ {
			if j > 0 {
				w.s.separator()
			}
			if err := w.instance(p, f.Type); err != nil {
				if f.IsArray() {
					err = errors.WithinIndex(err, j)
				}
				return errors.Within(err, f.Name)
			}
		}
	}
	w.s.compoundExit()
	return p.seek(src, dst, info.Size)
}

// fixedRun offers n instances of a fixed-size tid at p, spaced by their
// size rounded up to align, to the strategy as one byte run. It does not
// move p.
func (w *walker) fixedRun(p *position, tid catalog.TypeID, n, align uint32) (bool, error) {
	if n == 0 {
		return false, nil
	}
	fixed, err := w.e.cat.IsFixedSize(w.cid, tid)
	if err != nil || !fixed {
		return false, err
	}
	info, err := w.e.cat.DescribeType(w.cid, tid)
	if err != nil {
		return false, err
	}
	stride, ok := abi.AlignTo(info.Size, align)
	var run uint32
	if ok {
		run, ok = abi.SafeMulU32(n-1, stride)
	}
	if ok {
		run, ok = abi.SafeAddU32(run, info.Size)
	}
	if !ok {
		return false, errors.Overflow(errors.PhaseLayout, info.Name+" run")
	}
	at, err := p.at()
	if err != nil {
		return false, err
	}
	return w.s.fixedRun(at, run)
}

// elementBytes sizes a vlen element buffer of n elements.
func (e *Engine) elementBytes(cid catalog.ContainerID, info catalog.TypeInfo, n, align uint32, phase errors.Phase) (uint32, error) {
	elem, err := e.cat.DescribeType(cid, info.Base)
	if err != nil {
		return 0, err
	}
	size, ok := layout.ArrayBytes(n, elem.Size, align)
	if !ok {
		return 0, errors.New(phase, errors.KindBadValue).
			Type(info.Name).
			Detail("vlen of %d elements overflows the address space", n).
			Value(n).
			Build()
	}
	return size, nil
}

func nullVlen(phase errors.Phase, info catalog.TypeInfo, n uint32) error {
	return errors.New(phase, errors.KindBadValue).
		Type(info.Name).
		Detail("vlen length %d with null pointer", n).
		Value(n).
		Build()
}
