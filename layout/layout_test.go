package layout

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/wippyai/typedmem/catalog"
	typederrors "github.com/wippyai/typedmem/errors"
)

func TestAtomicAlignment(t *testing.T) {
	tests := []struct {
		id    catalog.TypeID
		name  string
		lp64  uint32
		ilp32 uint32
	}{
		{catalog.Byte, "byte", 1, 1},
		{catalog.Char, "char", 1, 1},
		{catalog.Short, "short", 2, 2},
		{catalog.Int, "int", 4, 4},
		{catalog.Float, "float", 4, 4},
		{catalog.Double, "double", 8, 8},
		{catalog.UByte, "ubyte", 1, 1},
		{catalog.UShort, "ushort", 2, 2},
		{catalog.UInt, "uint", 4, 4},
		{catalog.Int64, "int64", 8, 8},
		{catalog.UInt64, "uint64", 8, 8},
		{catalog.String, "string", 8, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, ok := AtomicAlignment(catalog.LP64, tc.id)
			if !ok || a != tc.lp64 {
				t.Errorf("lp64: got %d (%v), want %d", a, ok, tc.lp64)
			}
			a, ok = AtomicAlignment(catalog.ILP32, tc.id)
			if !ok || a != tc.ilp32 {
				t.Errorf("ilp32: got %d (%v), want %d", a, ok, tc.ilp32)
			}
		})
	}

	if _, ok := AtomicAlignment(catalog.LP64, catalog.FirstUserType); ok {
		t.Error("user types are not in the atomic table")
	}
}

func TestAtomicAlignmentConcurrentFirstUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a, _ := AtomicAlignment(catalog.LP64, catalog.Double); a != 8 {
				t.Errorf("double alignment = %d", a)
			}
		}()
	}
	wg.Wait()
}

func TestResolver(t *testing.T) {
	reg := catalog.NewRegistry(catalog.LP64)
	cid := reg.NewContainer()

	color, _ := reg.DefineEnum(cid, "color", catalog.Short, nil)
	blob, _ := reg.DefineOpaque(cid, "blob", 3)
	strs, _ := reg.DefineVlen(cid, "strs", catalog.String)
	inner, err := reg.DefineCompound(cid, "inner", 16, []catalog.Field{
		{Name: "d", Type: catalog.Double, Offset: 0},
		{Name: "b", Type: catalog.Byte, Offset: 8},
	})
	if err != nil {
		t.Fatal(err)
	}
	// the second field's alignment is ignored: first-field rule
	outer, err := reg.DefineCompound(cid, "outer", 32, []catalog.Field{
		{Name: "c", Type: color, Offset: 0},
		{Name: "i", Type: inner, Offset: 8},
	})
	if err != nil {
		t.Fatal(err)
	}
	nested, err := reg.DefineCompound(cid, "nested", 24, []catalog.Field{
		{Name: "i", Type: inner, Offset: 0},
	})
	if err != nil {
		t.Fatal(err)
	}

	r := NewResolver(reg)
	tests := []struct {
		name string
		id   catalog.TypeID
		want uint32
	}{
		{"enum follows base", color, 2},
		{"opaque", blob, 1},
		{"vlen", strs, 8},
		{"compound first field", inner, 8},
		{"compound first field only", outer, 2},
		{"nested compound", nested, 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.AlignmentOf(cid, tc.id)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
			// memoized answer must agree
			again, _ := r.AlignmentOf(cid, tc.id)
			if again != got {
				t.Errorf("cached %d, first %d", again, got)
			}
		})
	}

	if _, err := r.AlignmentOf(cid, 99); !errors.Is(err, typederrors.ErrBadType) {
		t.Errorf("expected bad type, got %v", err)
	}
}

func TestResolverILP32Vlen(t *testing.T) {
	reg := catalog.NewRegistry(catalog.ILP32)
	cid := reg.NewContainer()
	v, _ := reg.DefineVlen(cid, "v", catalog.Double)

	a, err := NewResolver(reg).AlignmentOf(cid, v)
	if err != nil {
		t.Fatal(err)
	}
	if a != 4 {
		t.Errorf("ilp32 vlen alignment = %d, want 4", a)
	}
}

func TestCursor(t *testing.T) {
	c := NewCursor(100)
	if addr, _ := c.At(); addr != 100 {
		t.Errorf("At = %d", addr)
	}

	if err := c.Advance(3); err != nil {
		t.Fatal(err)
	}
	if err := c.AlignTo(4); err != nil {
		t.Fatal(err)
	}
	if c.Offset != 4 {
		t.Errorf("offset after align = %d, want 4", c.Offset)
	}
	if err := c.AlignTo(0); err != nil || c.Offset != 4 {
		t.Errorf("AlignTo(0) should be a no-op, offset %d err %v", c.Offset, err)
	}
	if addr, _ := c.At(); addr != 104 {
		t.Errorf("At = %d, want 104", addr)
	}

	if err := c.SeekFrom(16, 8); err != nil || c.Offset != 24 {
		t.Errorf("SeekFrom: offset %d err %v", c.Offset, err)
	}
	c.Seek(2)
	if c.Offset != 2 {
		t.Errorf("Seek: offset %d", c.Offset)
	}

	c = Cursor{Base: 1, Offset: math.MaxUint32 - 1}
	if err := c.Advance(2); !errors.Is(err, &typederrors.Error{Kind: typederrors.KindOverflow}) {
		t.Errorf("expected overflow, got %v", err)
	}
	c = Cursor{Base: 1, Offset: math.MaxUint32}
	if _, err := c.At(); err == nil {
		t.Error("expected overflow from At")
	}
}
