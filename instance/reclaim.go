package instance

import (
	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/heap"
	"github.com/wippyai/typedmem/layout"
)

// reclaimer frees what instances point at, children before parents.
type reclaimer struct {
	nopStrategy
	e   *Engine
	cid catalog.ContainerID
}

// fixedRun skips fixed-size data: it owns nothing.
func (r *reclaimer) fixedRun(addrs, uint32) (bool, error) {
	return true, nil
}

func (r *reclaimer) str(at addrs) error {
	ptr, err := layout.ReadPointer(r.e.heap, r.e.model, at.src)
	if err != nil || ptr == 0 {
		return err
	}
	s, err := heap.ReadCString(r.e.heap, ptr)
	if err != nil {
		return err
	}
	r.e.heap.Free(ptr, uint32(len(s))+1, 1)
	return nil
}

func (r *reclaimer) vlenEnter(at addrs, info catalog.TypeInfo, align uint32) (vlenFrame, error) {
	h, err := layout.ReadVlen(r.e.heap, r.e.model, at.src)
	if err != nil {
		return vlenFrame{}, err
	}
	f := vlenFrame{info: info, align: align}
	if h.Len == 0 {
		return f, nil
	}
	if h.Ptr == 0 {
		return f, nullVlen(errors.PhaseReclaim, info, h.Len)
	}
	if f.bytes, err = r.e.elementBytes(r.cid, info, h.Len, align, errors.PhaseReclaim); err != nil {
		return f, err
	}
	f.n, f.src = h.Len, h.Ptr
	return f, nil
}

func (r *reclaimer) vlenExit(_ addrs, f *vlenFrame, walkErr error) error {
	if walkErr != nil {
		return walkErr
	}
	if f.n > 0 {
		r.e.heap.Free(f.src, f.bytes, f.align)
	}
	return nil
}
