package value

import (
	"go.uber.org/zap"

	typedmem "github.com/wippyai/typedmem"
	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/heap"
	"github.com/wippyai/typedmem/instance"
	"github.com/wippyai/typedmem/internal/abi"
	"github.com/wippyai/typedmem/layout"
)

// Codec builds and reads instances in an engine's heap.
type Codec struct {
	cat   catalog.Catalog
	heap  typedmem.Heap
	align *layout.Resolver
	eng   *instance.Engine
	log   *zap.Logger
	model catalog.DataModel
}

// New creates a codec sharing the engine's catalog, heap and alignment
// cache. The engine releases partially built instances.
func New(eng *instance.Engine) *Codec {
	cat := eng.Catalog()
	return &Codec{
		cat:   cat,
		heap:  eng.Heap(),
		align: eng.Resolver(),
		eng:   eng,
		log:   eng.Logger(),
		model: cat.DataModel(),
	}
}

// NewVector allocates a buffer holding one instance of tid per value and
// stores them. It returns 0 for no values. On error everything allocated
// is released.
func (c *Codec) NewVector(cid catalog.ContainerID, tid catalog.TypeID, values []any) (uint32, error) {
	if len(values) == 0 {
		return 0, nil
	}
	info, err := c.cat.DescribeType(cid, tid)
	if err != nil {
		return 0, err
	}
	align, err := c.align.AlignmentOf(cid, tid)
	if err != nil {
		return 0, err
	}
	count := uint32(len(values))
	size, ok := abi.SafeMulU32(count, info.Size)
	if !ok {
		return 0, errors.Overflow(errors.PhaseStore, "vector size")
	}
	buf, err := c.heap.Alloc(size, align)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseStore, size, align, err)
	}
	if err := heap.Zero(c.heap, buf, size); err != nil {
		c.heap.Free(buf, size, align)
		return 0, err
	}

	for i, v := range values {
		addr := buf + uint32(i)*info.Size
		if err := c.store(cid, tid, addr, v); err != nil {
			if rerr := c.eng.Reclaim(cid, tid, buf, count); rerr != nil {
				c.log.Warn("reclaim of partial vector failed", zap.Error(rerr))
			}
			c.heap.Free(buf, size, align)
			return 0, errors.WithinIndex(err, uint32(i))
		}
	}
	return buf, nil
}

// Store writes v as one instance of tid at addr, which must be zero
// filled. On error the instance may be partly written but stays
// reclaimable.
func (c *Codec) Store(cid catalog.ContainerID, tid catalog.TypeID, addr uint32, v any) error {
	if addr == 0 {
		return errors.InvalidArgument(errors.PhaseStore, "null address")
	}
	return c.store(cid, tid, addr, v)
}

// Load reads the instance of tid at addr.
func (c *Codec) Load(cid catalog.ContainerID, tid catalog.TypeID, addr uint32) (any, error) {
	if addr == 0 {
		return nil, errors.InvalidArgument(errors.PhaseLoad, "null address")
	}
	return c.load(cid, tid, addr)
}

// LoadVector reads count contiguous instances of tid at buf.
func (c *Codec) LoadVector(cid catalog.ContainerID, tid catalog.TypeID, buf, count uint32) ([]any, error) {
	if count == 0 {
		return []any{}, nil
	}
	if buf == 0 {
		return nil, errors.InvalidArgument(errors.PhaseLoad, "null buffer with positive count")
	}
	info, err := c.cat.DescribeType(cid, tid)
	if err != nil {
		return nil, err
	}
	out := make([]any, count)
	for i := uint32(0); i < count; i++ {
		off, ok := abi.SafeMulU32(i, info.Size)
		var addr uint32
		if ok {
			addr, ok = abi.SafeAddU32(buf, off)
		}
		if !ok {
			return nil, errors.Overflow(errors.PhaseLoad, "vector element address")
		}
		if out[i], err = c.load(cid, tid, addr); err != nil {
			return nil, errors.WithinIndex(err, i)
		}
	}
	return out, nil
}

func (c *Codec) members(cid catalog.ContainerID, tid catalog.TypeID) []catalog.Member {
	ml, ok := c.cat.(catalog.MemberLister)
	if !ok {
		return nil
	}
	members, err := ml.Members(cid, tid)
	if err != nil {
		return nil
	}
	return members
}
