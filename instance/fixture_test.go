package instance

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/heap"
	"github.com/wippyai/typedmem/layout"
)

// fixture builds instances by hand in an arena so each test controls
// every byte the engine sees.
type fixture struct {
	t     *testing.T
	reg   *catalog.Registry
	arena *heap.Arena
	eng   *Engine
	diag  *bytes.Buffer
	model catalog.DataModel
	cid   catalog.ContainerID
}

func newFixture(t *testing.T, model catalog.DataModel, opts ...heap.Option) *fixture {
	t.Helper()
	reg := catalog.NewRegistry(model)
	arena := heap.NewArena(opts...)
	diag := new(bytes.Buffer)
	return &fixture{
		t:     t,
		reg:   reg,
		arena: arena,
		eng:   New(reg, arena, WithDiagnostics(diag)),
		diag:  diag,
		model: model,
		cid:   reg.NewContainer(),
	}
}

func (f *fixture) alloc(size, align uint32) uint32 {
	f.t.Helper()
	p, err := f.arena.Alloc(size, align)
	require.NoError(f.t, err)
	return p
}

// top allocates a buffer for count instances of tid the way ReclaimAll
// expects to free it.
func (f *fixture) top(tid catalog.TypeID, count uint32) uint32 {
	f.t.Helper()
	info, err := f.reg.DescribeType(f.cid, tid)
	require.NoError(f.t, err)
	align, err := f.eng.Resolver().AlignmentOf(f.cid, tid)
	require.NoError(f.t, err)
	return f.alloc(info.Size*count, align)
}

func (f *fixture) cstring(s string) uint32 {
	f.t.Helper()
	p := f.alloc(uint32(len(s))+1, 1)
	require.NoError(f.t, heap.WriteCString(f.arena, p, []byte(s)))
	return p
}

func (f *fixture) putString(addr uint32, s string) {
	f.t.Helper()
	require.NoError(f.t, layout.WritePointer(f.arena, f.model, addr, f.cstring(s)))
}

// vlenBuf allocates an element buffer for n elements of base and links it
// from the header at addr.
func (f *fixture) vlenBuf(addr uint32, base catalog.TypeID, n uint32) uint32 {
	f.t.Helper()
	info, err := f.reg.DescribeType(f.cid, base)
	require.NoError(f.t, err)
	align, err := f.eng.Resolver().AlignmentOf(f.cid, base)
	require.NoError(f.t, err)
	size, ok := layout.ArrayBytes(n, info.Size, align)
	require.True(f.t, ok)
	p := f.alloc(size, align)
	require.NoError(f.t, layout.WriteVlen(f.arena, f.model, addr, layout.VlenHeader{Len: n, Ptr: p}))
	return p
}

func (f *fixture) putVlen(addr, n, ptr uint32) {
	f.t.Helper()
	require.NoError(f.t, layout.WriteVlen(f.arena, f.model, addr, layout.VlenHeader{Len: n, Ptr: ptr}))
}

func (f *fixture) vlen(name string, base catalog.TypeID) catalog.TypeID {
	f.t.Helper()
	id, err := f.reg.DefineVlen(f.cid, name, base)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) compound(name string, size uint32, fields ...catalog.Field) catalog.TypeID {
	f.t.Helper()
	id, err := f.reg.DefineCompound(f.cid, name, size, fields)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) dump(tid catalog.TypeID, buf, count uint32) string {
	f.t.Helper()
	s, err := f.eng.Dump(f.cid, tid, buf, count)
	require.NoError(f.t, err)
	return s
}

// pair defines Pair{a int; b vlen<string>} and stores {42, ["hi", "there"]}.
func (f *fixture) pair() (catalog.TypeID, uint32) {
	f.t.Helper()
	strs := f.vlen("strs", catalog.String)
	hdr := f.model.VlenHeaderSize()
	pair := f.compound("Pair", 8+hdr,
		catalog.Field{Name: "a", Offset: 0, Type: catalog.Int},
		catalog.Field{Name: "b", Offset: 8, Type: strs},
	)
	buf := f.top(pair, 1)
	require.NoError(f.t, f.arena.WriteU32(buf, 42))
	elems := f.vlenBuf(buf+8, catalog.String, 2)
	ptr := f.model.PointerSize()
	f.putString(elems, "hi")
	f.putString(elems+ptr, "there")
	return pair, buf
}
