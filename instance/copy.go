package instance

import (
	"go.uber.org/zap"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/heap"
	"github.com/wippyai/typedmem/layout"
)

// copier duplicates instances from src to dst. Every allocation it makes
// is either linked into dst or released before it returns.
type copier struct {
	nopStrategy
	e   *Engine
	cid catalog.ContainerID
}

func (c *copier) fixed(at addrs, info catalog.TypeInfo) error {
	data, err := c.e.heap.Read(at.src, info.Size)
	if err != nil {
		return err
	}
	return c.e.heap.Write(at.dst, data)
}

func (c *copier) fixedRun(at addrs, n uint32) (bool, error) {
	data, err := c.e.heap.Read(at.src, n)
	if err != nil {
		return false, err
	}
	return true, c.e.heap.Write(at.dst, data)
}

func (c *copier) str(at addrs) error {
	h, model := c.e.heap, c.e.model
	ptr, err := layout.ReadPointer(h, model, at.src)
	if err != nil {
		return err
	}
	if ptr == 0 {
		return layout.WritePointer(h, model, at.dst, 0)
	}
	s, err := heap.ReadCString(h, ptr)
	if err != nil {
		return err
	}
	n := uint32(len(s)) + 1
	dup, err := h.Alloc(n, 1)
	if err != nil {
		return errors.AllocationFailed(errors.PhaseCopy, n, 1, err)
	}
	if err := heap.WriteCString(h, dup, s); err != nil {
		h.Free(dup, n, 1)
		return err
	}
	if err := layout.WritePointer(h, model, at.dst, dup); err != nil {
		h.Free(dup, n, 1)
		return err
	}
	return nil
}

func (c *copier) vlenEnter(at addrs, info catalog.TypeInfo, align uint32) (vlenFrame, error) {
	h := c.e.heap
	hdr, err := layout.ReadVlen(h, c.e.model, at.src)
	if err != nil {
		return vlenFrame{}, err
	}
	f := vlenFrame{info: info, align: align}
	if hdr.Len == 0 {
		return f, nil
	}
	if hdr.Ptr == 0 {
		return f, nullVlen(errors.PhaseCopy, info, hdr.Len)
	}
	if f.bytes, err = c.e.elementBytes(c.cid, info, hdr.Len, align, errors.PhaseCopy); err != nil {
		return f, err
	}
	buf, err := h.Alloc(f.bytes, align)
	if err != nil {
		return f, errors.AllocationFailed(errors.PhaseCopy, f.bytes, align, err)
	}
	if err := c.e.zero(buf, f.bytes); err != nil {
		h.Free(buf, f.bytes, align)
		return f, err
	}
	f.n, f.src, f.dst = hdr.Len, hdr.Ptr, buf
	return f, nil
}

func (c *copier) vlenExit(at addrs, f *vlenFrame, walkErr error) error {
	if walkErr == nil && f.n == 0 {
		return layout.WriteVlen(c.e.heap, c.e.model, at.dst, layout.VlenHeader{})
	}
	if walkErr == nil {
		walkErr = layout.WriteVlen(c.e.heap, c.e.model, at.dst, layout.VlenHeader{Len: f.n, Ptr: f.dst})
		if walkErr == nil {
			return nil
		}
	}
	c.unwind(f)
	return walkErr
}

// unwind releases a new element buffer whose copy failed part way. The
// buffer was zero filled, so elements not yet copied reclaim as empty.
func (c *copier) unwind(f *vlenFrame) {
	if f.dst == 0 {
		return
	}
	r := &reclaimer{e: c.e, cid: c.cid}
	if err := c.e.walker(c.cid, r).elements(f.info.Base, f.dst, 0, f.n, f.align); err != nil {
		c.e.log.Warn("reclaim of partial vlen copy failed",
			zap.String("type", f.info.Name),
			zap.Error(err))
	}
	c.e.heap.Free(f.dst, f.bytes, f.align)
	f.dst = 0
}
