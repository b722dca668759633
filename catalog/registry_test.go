package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/typedmem/errors"
)

func TestAtomicNames(t *testing.T) {
	for id := Byte; id <= MaxAtomic; id++ {
		name := AtomicName(id)
		require.NotEmpty(t, name, "atomic %d", id)
		back, ok := AtomicByName(name)
		require.True(t, ok)
		assert.Equal(t, id, back)
	}
	assert.Equal(t, "", AtomicName(FirstUserType))
	_, ok := AtomicByName("Pair")
	assert.False(t, ok)
}

func TestDataModel(t *testing.T) {
	assert.Equal(t, uint32(16), LP64.VlenHeaderSize())
	assert.Equal(t, uint32(8), LP64.VlenPointerOffset())
	assert.Equal(t, uint32(8), ILP32.VlenHeaderSize())
	assert.Equal(t, uint32(4), ILP32.VlenPointerOffset())

	size, ok := LP64.AtomicSize(String)
	require.True(t, ok)
	assert.Equal(t, uint32(8), size)
	size, _ = ILP32.AtomicSize(String)
	assert.Equal(t, uint32(4), size)
	size, _ = ILP32.AtomicSize(Double)
	assert.Equal(t, uint32(8), size)

	m, err := ParseDataModel("ilp32")
	require.NoError(t, err)
	assert.Equal(t, ILP32, m)
	_, err = ParseDataModel("lp128")
	assert.Error(t, err)
}

func TestRegistryDescribe(t *testing.T) {
	reg := NewRegistry(LP64)
	cid := reg.NewContainer()

	strs, err := reg.DefineVlen(cid, "strings", String)
	require.NoError(t, err)
	pair, err := reg.DefineCompound(cid, "Pair", 24, []Field{
		{Name: "a", Type: Int, Offset: 0},
		{Name: "b", Type: strs, Offset: 8},
	})
	require.NoError(t, err)
	assert.Equal(t, FirstUserType, strs)
	assert.Equal(t, FirstUserType+1, pair)

	info, err := reg.DescribeType(cid, pair)
	require.NoError(t, err)
	assert.Equal(t, ClassCompound, info.Class)
	assert.Equal(t, uint32(24), info.Size)
	assert.Equal(t, 2, info.FieldCount)

	f, err := reg.DescribeField(cid, pair, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", f.Name)
	assert.Equal(t, uint32(8), f.Offset)
	assert.False(t, f.IsArray())
	assert.Equal(t, 1, f.Rank())
	n, ok := f.Extent()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), n)

	info, err = reg.DescribeType(cid, String)
	require.NoError(t, err)
	assert.Equal(t, ClassAtomic, info.Class)
	assert.Equal(t, uint32(8), info.Size)

	_, err = reg.DescribeType(cid, 99)
	assert.ErrorIs(t, err, errors.ErrBadType)
	_, err = reg.DescribeType(cid, 20)
	assert.ErrorIs(t, err, errors.ErrBadType)
	_, err = reg.DescribeType(ContainerID(77), Int)
	assert.ErrorIs(t, err, errors.ErrBadType)

	_, err = reg.DescribeField(cid, pair, 2)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	_, err = reg.DescribeField(cid, strs, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	id, err := reg.Lookup(cid, "Pair")
	require.NoError(t, err)
	assert.Equal(t, pair, id)
	id, err = reg.Lookup(cid, "double")
	require.NoError(t, err)
	assert.Equal(t, Double, id)
	_, err = reg.Lookup(cid, "Missing")
	assert.Error(t, err)

	types, err := reg.Types(cid)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "strings", types[0].Name)
}

func TestRegistryFixedSize(t *testing.T) {
	reg := NewRegistry(LP64)
	cid := reg.NewContainer()

	color, err := reg.DefineEnum(cid, "color", UByte, []Member{{"RED", 0}, {"GREEN", 1}})
	require.NoError(t, err)
	blob, err := reg.DefineOpaque(cid, "blob", 5)
	require.NoError(t, err)
	flat, err := reg.DefineCompound(cid, "flat", 16, []Field{
		{Name: "c", Type: color, Offset: 0},
		{Name: "o", Type: blob, Offset: 1},
		{Name: "m", Type: Short, Offset: 6, Dims: []uint32{2, 2}},
	})
	require.NoError(t, err)
	ints, err := reg.DefineVlen(cid, "ints", Int)
	require.NoError(t, err)
	deep, err := reg.DefineCompound(cid, "deep", 24, []Field{
		{Name: "f", Type: flat, Offset: 0},
		{Name: "v", Type: ints, Offset: 16},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		id    TypeID
		fixed bool
	}{
		{"int", Int, true},
		{"string", String, false},
		{"enum", color, true},
		{"opaque", blob, true},
		{"flat compound", flat, true},
		{"vlen", ints, false},
		{"compound with vlen", deep, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fixed, err := reg.IsFixedSize(cid, tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.fixed, fixed)
		})
	}

	members, err := reg.Members(cid, color)
	require.NoError(t, err)
	assert.Equal(t, []Member{{"RED", 0}, {"GREEN", 1}}, members)
}

func TestRegistryRejects(t *testing.T) {
	reg := NewRegistry(ILP32)
	cid := reg.NewContainer()

	_, err := reg.DefineCompound(cid, "empty", 4, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = reg.DefineCompound(cid, "overrun", 6, []Field{{Name: "x", Type: Int, Offset: 4}})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = reg.DefineCompound(cid, "array overrun", 8, []Field{{Name: "x", Type: Short, Dims: []uint32{5}}})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = reg.DefineCompound(cid, "unknown", 8, []Field{{Name: "x", Type: 40}})
	assert.ErrorIs(t, err, errors.ErrBadType)

	_, err = reg.DefineCompound(cid, "dup", 8, []Field{{Name: "x", Type: Int}, {Name: "x", Type: Int, Offset: 4}})
	assert.Error(t, err)

	_, err = reg.DefineEnum(cid, "fenum", Float, nil)
	assert.ErrorIs(t, err, errors.ErrBadType)
	_, err = reg.DefineEnum(cid, "wide", Byte, []Member{{"BIG", 300}})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	_, err = reg.DefineEnum(cid, "neg", UShort, []Member{{"NEG", -1}})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = reg.DefineOpaque(cid, "zero", 0)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = reg.DefineVlen(cid, "int", Int)
	assert.Error(t, err, "atomic names are reserved")

	_, err = reg.DefineVlen(cid, "v", Int)
	require.NoError(t, err)
	_, err = reg.DefineVlen(cid, "v", Int)
	assert.Error(t, err)

	_, err = reg.DefineVlen(cid, "dangling", 45)
	assert.ErrorIs(t, err, errors.ErrBadType)
}

func TestRegistryFieldsAreCopies(t *testing.T) {
	reg := NewRegistry(LP64)
	cid := reg.NewContainer()
	m, err := reg.DefineCompound(cid, "M", 16, []Field{{Name: "m", Type: Int, Dims: []uint32{2, 2}}})
	require.NoError(t, err)

	f, err := reg.DescribeField(cid, m, 0)
	require.NoError(t, err)
	f.Dims[0] = 100

	fields, err := reg.Fields(cid, m)
	require.NoError(t, err)
	fields[0].Dims[1] = 50

	again, err := reg.DescribeField(cid, m, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 2}, again.Dims)
	n, ok := again.Extent()
	assert.True(t, ok)
	assert.Equal(t, uint32(4), n)
}

func TestFieldExtentOverflow(t *testing.T) {
	f := Field{Name: "huge", Type: Byte, Dims: []uint32{1 << 16, 1 << 16}}
	_, ok := f.Extent()
	assert.False(t, ok)

	f.Dims = []uint32{1 << 16, 1<<16 - 1}
	n, ok := f.Extent()
	assert.True(t, ok)
	assert.Equal(t, uint32(1<<32-1<<16), n)
}
