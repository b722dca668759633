package instance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/layout"
)

var models = []catalog.DataModel{catalog.LP64, catalog.ILP32}

func TestDump_Pair(t *testing.T) {
	for _, m := range models {
		t.Run(m.String(), func(t *testing.T) {
			f := newFixture(t, m)
			pair, buf := f.pair()
			assert.Equal(t, `<a42;b{len=2,p=("hi" "there")}>`, f.dump(pair, buf, 1))
		})
	}
}

func TestPrint(t *testing.T) {
	f := newFixture(t, catalog.LP64)
	pair, buf := f.pair()
	require.NoError(t, f.eng.Print(f.cid, pair, buf, 1))
	assert.Equal(t, "<a42;b{len=2,p=(\"hi\" \"there\")}>\n", f.diag.String())
}

func TestDump_Atomics(t *testing.T) {
	f := newFixture(t, catalog.LP64)
	buf := f.alloc(8, 8)
	a := f.arena

	tests := []struct {
		name  string
		tid   catalog.TypeID
		write func() error
		want  string
	}{
		{"byte", catalog.Byte, func() error { return a.WriteU8(buf, 0xff) }, "-1"},
		{"char", catalog.Char, func() error { return a.WriteU8(buf, 'x') }, "'x'"},
		{"short", catalog.Short, func() error { return a.WriteU16(buf, 0xfffe) }, "-2"},
		{"int", catalog.Int, func() error { return a.WriteU32(buf, 0xfffffffd) }, "-3"},
		{"int64", catalog.Int64, func() error { return a.WriteU64(buf, math.MaxUint64-4) }, "-5"},
		{"ubyte", catalog.UByte, func() error { return a.WriteU8(buf, 255) }, "255"},
		{"ushort", catalog.UShort, func() error { return a.WriteU16(buf, 65535) }, "65535"},
		{"uint", catalog.UInt, func() error { return a.WriteU32(buf, math.MaxUint32) }, "4294967295"},
		{"uint64", catalog.UInt64, func() error { return a.WriteU64(buf, math.MaxUint64) }, "18446744073709551615"},
		{"float", catalog.Float, func() error { return a.WriteU32(buf, math.Float32bits(1.5)) }, "1.500000"},
		{"double", catalog.Double, func() error { return a.WriteU64(buf, math.Float64bits(-0.25)) }, "-0.250000"},
		{"null string", catalog.String, func() error { return a.WriteU64(buf, 0) }, "NULL"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.write())
			assert.Equal(t, tc.want, f.dump(tc.tid, buf, 1))
		})
	}
}

func TestDump_VectorSeparators(t *testing.T) {
	f := newFixture(t, catalog.LP64)
	buf := f.alloc(12, 4)
	for i := uint32(0); i < 3; i++ {
		require.NoError(t, f.arena.WriteU32(buf+4*i, i+1))
	}
	assert.Equal(t, "1 2 3", f.dump(catalog.Int, buf, 3))
}

func TestDump_EnumAndOpaque(t *testing.T) {
	f := newFixture(t, catalog.LP64)
	color, err := f.reg.DefineEnum(f.cid, "Color", catalog.UByte, []catalog.Member{
		{Name: "red", Value: 0}, {Name: "green", Value: 1}, {Name: "blue", Value: 2},
	})
	require.NoError(t, err)
	blob, err := f.reg.DefineOpaque(f.cid, "blob", 3)
	require.NoError(t, err)
	tagged := f.compound("Tagged", 4,
		catalog.Field{Name: "c", Offset: 0, Type: color},
		catalog.Field{Name: "o", Offset: 1, Type: blob},
	)

	buf := f.top(tagged, 1)
	require.NoError(t, f.arena.Write(buf, []byte{2, 0x0a, 0x0b, 0x0c}))
	assert.Equal(t, "<c2;o|0a0b0c|>", f.dump(tagged, buf, 1))
}

func TestCopyAll_RoundTripAndIsolation(t *testing.T) {
	for _, m := range models {
		t.Run(m.String(), func(t *testing.T) {
			f := newFixture(t, m)
			pair, src := f.pair()
			want := f.dump(pair, src, 1)

			dst, err := f.eng.CopyAll(f.cid, pair, src, 1)
			require.NoError(t, err)
			require.NotZero(t, dst)
			assert.NotEqual(t, src, dst)
			assert.Equal(t, want, f.dump(pair, dst, 1))

			srcHdr, err := layout.ReadVlen(f.arena, m, src+8)
			require.NoError(t, err)
			dstHdr, err := layout.ReadVlen(f.arena, m, dst+8)
			require.NoError(t, err)
			assert.NotEqual(t, srcHdr.Ptr, dstHdr.Ptr, "element buffers must not be shared")

			hi, err := layout.ReadPointer(f.arena, m, srcHdr.Ptr)
			require.NoError(t, err)
			require.NoError(t, f.arena.Write(hi, []byte("HI")))
			assert.Equal(t, want, f.dump(pair, dst, 1))

			require.NoError(t, f.eng.ReclaimAll(f.cid, pair, src, 1))
			assert.Equal(t, want, f.dump(pair, dst, 1))

			require.NoError(t, f.eng.ReclaimAll(f.cid, pair, dst, 1))
			st := f.arena.Stats()
			assert.Zero(t, st.Live)
			assert.Zero(t, st.InvalidFrees)
		})
	}
}

func TestFixedSize_FastPaths(t *testing.T) {
	f := newFixture(t, catalog.LP64)
	point := f.compound("Point", 16,
		catalog.Field{Name: "x", Offset: 0, Type: catalog.Short},
		catalog.Field{Name: "y", Offset: 8, Type: catalog.Double},
	)
	src := f.top(point, 2)
	require.NoError(t, f.arena.WriteU16(src, 1))
	require.NoError(t, f.arena.WriteU64(src+8, math.Float64bits(2.5)))
	require.NoError(t, f.arena.WriteU16(src+16, 0xfffd))

	before := f.arena.Stats()
	require.NoError(t, f.eng.Reclaim(f.cid, point, src, 2))
	require.NoError(t, f.eng.Reclaim(f.cid, point, src, 2))
	assert.Equal(t, before, f.arena.Stats(), "reclaiming fixed-size data must not touch the heap")

	dst := f.top(point, 2)
	require.NoError(t, f.eng.Copy(f.cid, point, src, 2, dst))
	a, err := f.arena.Read(src, 32)
	require.NoError(t, err)
	b, err := f.arena.Read(dst, 32)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	assert.Equal(t, "<x1;y2.500000> <x-3;y0.000000>", f.dump(point, dst, 2))
}

func TestCompound_SeeksEachField(t *testing.T) {
	f := newFixture(t, catalog.LP64)
	rec := f.compound("Rec", 24,
		catalog.Field{Name: "b", Offset: 12, Type: catalog.Int},
		catalog.Field{Name: "s", Offset: 16, Type: catalog.String},
		catalog.Field{Name: "a", Offset: 0, Type: catalog.UByte},
		catalog.Field{Name: "m", Offset: 2, Type: catalog.Short, Dims: []uint32{2, 2}},
	)
	src := f.top(rec, 1)
	require.NoError(t, f.arena.WriteU32(src+12, 7))
	f.putString(src+16, "ok")
	require.NoError(t, f.arena.WriteU8(src, 1))
	for i := uint32(0); i < 4; i++ {
		require.NoError(t, f.arena.WriteU16(src+2+2*i, uint16(i+1)))
	}

	const want = `<b7;s"ok";a1;m[2][2]1 2 3 4>`
	assert.Equal(t, want, f.dump(rec, src, 1))

	dst, err := f.eng.CopyAll(f.cid, rec, src, 1)
	require.NoError(t, err)
	assert.Equal(t, want, f.dump(rec, dst, 1))

	require.NoError(t, f.eng.ReclaimAll(f.cid, rec, dst, 1))
	require.NoError(t, f.eng.ReclaimAll(f.cid, rec, src, 1))
	assert.Zero(t, f.arena.Stats().Live)
}

func TestNestedVlen_NoLeaks(t *testing.T) {
	for _, m := range models {
		t.Run(m.String(), func(t *testing.T) {
			f := newFixture(t, m)
			ints := f.vlen("ints", catalog.Int)
			rows := f.vlen("rows", ints)

			top := f.top(rows, 1)
			outer := f.vlenBuf(top, ints, 2)
			inner := f.vlenBuf(outer, catalog.Int, 3)
			for i := uint32(0); i < 3; i++ {
				require.NoError(t, f.arena.WriteU32(inner+4*i, i+1))
			}
			f.putVlen(outer+m.VlenHeaderSize(), 0, 0)

			const want = "{len=2,p=({len=3,p=(1 2 3)} {len=0,p=()})}"
			assert.Equal(t, want, f.dump(rows, top, 1))

			dst, err := f.eng.CopyAll(f.cid, rows, top, 1)
			require.NoError(t, err)
			assert.Equal(t, want, f.dump(rows, dst, 1))

			require.NoError(t, f.eng.ReclaimAll(f.cid, rows, top, 1))
			require.NoError(t, f.eng.ReclaimAll(f.cid, rows, dst, 1))
			st := f.arena.Stats()
			assert.Zero(t, st.Live)
			assert.Zero(t, st.InvalidFrees)
		})
	}
}

func TestErrors_BadType(t *testing.T) {
	f := newFixture(t, catalog.LP64)
	buf := f.alloc(16, 8)
	const undefined = catalog.TypeID(99)

	assert.ErrorIs(t, f.eng.Reclaim(f.cid, undefined, buf, 1), errors.ErrBadType)
	assert.ErrorIs(t, f.eng.ReclaimAll(f.cid, undefined, buf, 1), errors.ErrBadType)
	assert.ErrorIs(t, f.eng.Copy(f.cid, undefined, buf, 1, buf), errors.ErrBadType)
	_, err := f.eng.CopyAll(f.cid, undefined, buf, 1)
	assert.ErrorIs(t, err, errors.ErrBadType)
	_, err = f.eng.Dump(f.cid, undefined, buf, 1)
	assert.ErrorIs(t, err, errors.ErrBadType)

	assert.ErrorIs(t, f.eng.Reclaim(f.cid+7, catalog.Int, buf, 1), errors.ErrBadType)
}

func TestErrors_InvalidArgument(t *testing.T) {
	f := newFixture(t, catalog.LP64)
	buf := f.alloc(4, 4)

	assert.ErrorIs(t, f.eng.Reclaim(f.cid, catalog.Int, 0, 1), errors.ErrInvalidArgument)
	assert.ErrorIs(t, f.eng.ReclaimAll(f.cid, catalog.Int, 0, 1), errors.ErrInvalidArgument)
	assert.ErrorIs(t, f.eng.Copy(f.cid, catalog.Int, buf, 1, 0), errors.ErrInvalidArgument)
	assert.ErrorIs(t, f.eng.Copy(f.cid, catalog.Int, 0, 1, buf), errors.ErrInvalidArgument)
	_, err := f.eng.CopyAll(f.cid, catalog.Int, 0, 1)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	_, err = f.eng.Dump(f.cid, catalog.Int, 0, 1)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestZeroCount_IsNoOp(t *testing.T) {
	f := newFixture(t, catalog.LP64)
	before := f.arena.Stats()

	assert.NoError(t, f.eng.Reclaim(f.cid, 99, 0, 0))
	assert.NoError(t, f.eng.ReclaimAll(f.cid, 99, 0, 0))
	assert.NoError(t, f.eng.Copy(f.cid, 99, 0, 0, 0))
	dst, err := f.eng.CopyAll(f.cid, catalog.Int, 0, 0)
	assert.NoError(t, err)
	assert.Zero(t, dst)
	s, err := f.eng.Dump(f.cid, catalog.Int, 0, 0)
	assert.NoError(t, err)
	assert.Empty(t, s)

	assert.Equal(t, before, f.arena.Stats())
}

func TestErrors_NullVlenPointer(t *testing.T) {
	f := newFixture(t, catalog.LP64)
	pair, buf := f.pair()
	f.putVlen(buf+8, 3, 0)
	before := f.arena.Stats()

	err := f.eng.Reclaim(f.cid, pair, buf, 1)
	require.ErrorIs(t, err, errors.ErrBadValue)
	assert.Contains(t, err.Error(), "at [0].b")

	_, err = f.eng.Dump(f.cid, pair, buf, 1)
	assert.ErrorIs(t, err, errors.ErrBadValue)

	dst, err := f.eng.CopyAll(f.cid, pair, buf, 1)
	assert.ErrorIs(t, err, errors.ErrBadValue)
	assert.Zero(t, dst)
	assert.Equal(t, before.Live, f.arena.Stats().Live, "failed copy must release its allocations")
}

func TestCopyAll_OutOfMemoryUnwinds(t *testing.T) {
	f := newFixture(t, catalog.LP64)
	pair, src := f.pair()
	base := f.arena.Stats()

	// CopyAll allocates the top buffer, the element buffer, then each string.
	for n := 0; n < 4; n++ {
		f.arena.FailAfter(n)
		dst, err := f.eng.CopyAll(f.cid, pair, src, 1)
		f.arena.FailAfter(-1)

		require.ErrorIs(t, err, errors.ErrOutOfMemory, "fail after %d", n)
		assert.Zero(t, dst)
		st := f.arena.Stats()
		assert.Equal(t, base.Live, st.Live, "fail after %d leaked", n)
		assert.Zero(t, st.InvalidFrees)
	}

	dst, err := f.eng.CopyAll(f.cid, pair, src, 1)
	require.NoError(t, err)
	assert.Equal(t, f.dump(pair, src, 1), f.dump(pair, dst, 1))
}
