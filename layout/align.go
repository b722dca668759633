package layout

import (
	"sync"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
)

type alignmentTable [catalog.MaxAtomic + 1]uint32

// atomicAlignments is built exactly once, on first use.
var atomicAlignments = sync.OnceValue(func() map[catalog.DataModel]*alignmentTable {
	tables := make(map[catalog.DataModel]*alignmentTable, 2)
	for _, m := range []catalog.DataModel{catalog.LP64, catalog.ILP32} {
		t := new(alignmentTable)
		for id := catalog.Byte; id <= catalog.MaxAtomic; id++ {
			// natural alignment: every atomic is its own size
			t[id], _ = m.AtomicSize(id)
		}
		tables[m] = t
	}
	return tables
})

// AtomicAlignment returns the alignment of an atomic type under m.
func AtomicAlignment(m catalog.DataModel, id catalog.TypeID) (uint32, bool) {
	t, ok := atomicAlignments()[m]
	if !ok || !id.IsAtomic() {
		return 0, false
	}
	return t[id], true
}

// VlenAlignment is the alignment of the inline vlen header.
func VlenAlignment(m catalog.DataModel) uint32 {
	return m.PointerSize()
}

// OpaqueAlignment is the alignment of opaque blobs.
const OpaqueAlignment = 1

type alignKey struct {
	cid catalog.ContainerID
	tid catalog.TypeID
}

// Resolver answers alignment queries against one catalog.
type Resolver struct {
	cat   catalog.Catalog
	cache map[alignKey]uint32
	mu    sync.RWMutex
}

func NewResolver(cat catalog.Catalog) *Resolver {
	return &Resolver{
		cat:   cat,
		cache: make(map[alignKey]uint32),
	}
}

// AlignmentOf returns the byte alignment an instance of tid needs.
func (r *Resolver) AlignmentOf(cid catalog.ContainerID, tid catalog.TypeID) (uint32, error) {
	model := r.cat.DataModel()
	if a, ok := AtomicAlignment(model, tid); ok {
		return a, nil
	}

	key := alignKey{cid, tid}
	r.mu.RLock()
	a, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return a, nil
	}

	info, err := r.cat.DescribeType(cid, tid)
	if err != nil {
		return 0, err
	}
	switch info.Class {
	case catalog.ClassVlen:
		a = VlenAlignment(model)
	case catalog.ClassOpaque:
		a = OpaqueAlignment
	case catalog.ClassEnum:
		a, err = r.AlignmentOf(cid, info.Base)
	case catalog.ClassCompound:
		a, err = r.compoundAlignment(cid, info)
	default:
		return 0, errors.New(errors.PhaseLayout, errors.KindBadType).
			Type(info.Name).
			Detail("no alignment rule for class %s", info.Class).
			Build()
	}
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.cache[key] = a
	r.mu.Unlock()
	return a, nil
}

// compoundAlignment follows the first field, recursively.
func (r *Resolver) compoundAlignment(cid catalog.ContainerID, info catalog.TypeInfo) (uint32, error) {
	if info.FieldCount == 0 {
		return 1, nil
	}
	first, err := r.cat.DescribeField(cid, info.ID, 0)
	if err != nil {
		return 0, err
	}
	return r.AlignmentOf(cid, first.Type)
}
