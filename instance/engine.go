package instance

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	typedmem "github.com/wippyai/typedmem"
	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/heap"
	"github.com/wippyai/typedmem/internal/abi"
	"github.com/wippyai/typedmem/layout"
)

// Engine runs reclaim, copy and dump walks against one catalog and heap.
// An Engine holds no per-call state and may be shared between goroutines
// as long as the heap is.
type Engine struct {
	cat   catalog.Catalog
	heap  typedmem.Heap
	align *layout.Resolver
	log   *zap.Logger
	diag  io.Writer
	model catalog.DataModel
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the package logger for this engine.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithDiagnostics sets where Print writes. Defaults to os.Stderr.
func WithDiagnostics(w io.Writer) Option {
	return func(e *Engine) {
		if w != nil {
			e.diag = w
		}
	}
}

// WithResolver shares an alignment resolver (and its cache) between
// engines over the same catalog.
func WithResolver(r *layout.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.align = r
		}
	}
}

// New creates an engine over cat whose instances live in h.
func New(cat catalog.Catalog, h typedmem.Heap, opts ...Option) *Engine {
	e := &Engine{
		cat:   cat,
		heap:  h,
		log:   Logger(),
		diag:  os.Stderr,
		model: cat.DataModel(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.align == nil {
		e.align = layout.NewResolver(cat)
	}
	return e
}

func (e *Engine) Catalog() catalog.Catalog { return e.cat }

func (e *Engine) Heap() typedmem.Heap { return e.heap }

func (e *Engine) Resolver() *layout.Resolver { return e.align }

func (e *Engine) Logger() *zap.Logger { return e.log }

// Reclaim frees every allocation reachable from count contiguous
// instances of tid at buf. The instances themselves are left in place and
// buf is not freed. The walk stops at the first error.
func (e *Engine) Reclaim(cid catalog.ContainerID, tid catalog.TypeID, buf, count uint32) error {
	if count == 0 {
		return nil
	}
	if buf == 0 {
		return errors.InvalidArgument(errors.PhaseReclaim, "null buffer with positive count")
	}
	fixed, err := e.cat.IsFixedSize(cid, tid)
	if err != nil {
		return err
	}
	if fixed {
		return nil
	}
	w := e.walker(cid, &reclaimer{e: e, cid: cid})
	return w.vector(tid, buf, 0, count)
}

// ReclaimAll reclaims the instances and then frees buf itself, which must
// have been allocated with size count*Size(tid) and the alignment of tid.
// On error buf is left allocated.
func (e *Engine) ReclaimAll(cid catalog.ContainerID, tid catalog.TypeID, buf, count uint32) error {
	if count == 0 {
		return nil
	}
	if err := e.Reclaim(cid, tid, buf, count); err != nil {
		return err
	}
	size, align, err := e.vectorShape(cid, tid, count, errors.PhaseReclaim)
	if err != nil {
		return err
	}
	e.heap.Free(buf, size, align)
	e.log.Debug("freed top-level buffer",
		zap.Int32("type", int32(tid)),
		zap.Uint32("ptr", buf),
		zap.Uint32("count", count),
		zap.Uint32("size", size))
	return nil
}

// Copy deep-copies count instances of tid from src into the caller's dst.
// dst must be zero filled if the caller intends to reclaim it after a
// failed copy.
func (e *Engine) Copy(cid catalog.ContainerID, tid catalog.TypeID, src, count, dst uint32) error {
	if count == 0 {
		return nil
	}
	if src == 0 || dst == 0 {
		return errors.InvalidArgument(errors.PhaseCopy, "null buffer with positive count")
	}
	fixed, err := e.cat.IsFixedSize(cid, tid)
	if err != nil {
		return err
	}
	if fixed {
		return e.copyFlat(cid, tid, src, count, dst)
	}
	w := e.walker(cid, &copier{e: e, cid: cid})
	return w.vector(tid, src, dst, count)
}

func (e *Engine) copyFlat(cid catalog.ContainerID, tid catalog.TypeID, src, count, dst uint32) error {
	info, err := e.cat.DescribeType(cid, tid)
	if err != nil {
		return err
	}
	n, ok := abi.SafeMulU32(count, info.Size)
	if !ok {
		return errors.Overflow(errors.PhaseCopy, "vector size")
	}
	data, err := e.heap.Read(src, n)
	if err != nil {
		return err
	}
	return e.heap.Write(dst, data)
}

// CopyAll allocates a zeroed buffer for count instances, deep-copies into
// it and returns it. On failure everything the partial copy allocated is
// released and 0 is returned.
func (e *Engine) CopyAll(cid catalog.ContainerID, tid catalog.TypeID, src, count uint32) (uint32, error) {
	if count == 0 {
		return 0, nil
	}
	if src == 0 {
		return 0, errors.InvalidArgument(errors.PhaseCopy, "null source with positive count")
	}
	size, align, err := e.vectorShape(cid, tid, count, errors.PhaseCopy)
	if err != nil {
		return 0, err
	}
	dst, err := e.heap.Alloc(size, align)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseCopy, size, align, err)
	}
	if err := e.zero(dst, size); err != nil {
		e.heap.Free(dst, size, align)
		return 0, err
	}

	if err := e.Copy(cid, tid, src, count, dst); err != nil {
		if rerr := e.Reclaim(cid, tid, dst, count); rerr != nil {
			e.log.Warn("reclaim of partial copy failed", zap.Error(rerr))
		}
		e.heap.Free(dst, size, align)
		e.log.Debug("copy unwound",
			zap.Int32("type", int32(tid)),
			zap.Uint32("count", count),
			zap.Error(err))
		return 0, err
	}
	return dst, nil
}

// Dump renders count instances of tid at buf. Top-level instances are
// separated by single spaces. Output is only returned on success.
func (e *Engine) Dump(cid catalog.ContainerID, tid catalog.TypeID, buf, count uint32) (string, error) {
	if count == 0 {
		return "", nil
	}
	if buf == 0 {
		return "", errors.InvalidArgument(errors.PhaseDump, "null buffer with positive count")
	}
	d := &dumper{e: e}
	if err := e.walker(cid, d).vector(tid, buf, 0, count); err != nil {
		return "", err
	}
	return d.out.String(), nil
}

// Print writes the Dump of the instances to the diagnostics stream,
// followed by a newline.
func (e *Engine) Print(cid catalog.ContainerID, tid catalog.TypeID, buf, count uint32) error {
	s, err := e.Dump(cid, tid, buf, count)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.diag, s)
	return err
}

// vectorShape is the size and alignment of a top-level buffer.
func (e *Engine) vectorShape(cid catalog.ContainerID, tid catalog.TypeID, count uint32, phase errors.Phase) (uint32, uint32, error) {
	info, err := e.cat.DescribeType(cid, tid)
	if err != nil {
		return 0, 0, err
	}
	align, err := e.align.AlignmentOf(cid, tid)
	if err != nil {
		return 0, 0, err
	}
	size, ok := abi.SafeMulU32(count, info.Size)
	if !ok {
		return 0, 0, errors.Overflow(phase, "vector size")
	}
	return size, align, nil
}

func (e *Engine) zero(ptr, n uint32) error {
	return heap.Zero(e.heap, ptr, n)
}
