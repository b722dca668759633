package catalog

import "github.com/wippyai/typedmem/internal/abi"

// TypeInfo is what the catalog knows about one type.
type TypeInfo struct {
	Name       string
	ID         TypeID
	Base       TypeID // element type of a vlen, integer base of an enum
	Size       uint32
	FieldCount int
	Class      Class
}

// Field describes one compound member. Scalar fields have no Dims and
// behave as rank 1 with a single element.
type Field struct {
	Name   string
	Dims   []uint32
	Offset uint32
	Type   TypeID
}

// IsArray reports whether the field was declared with dimensions.
func (f Field) IsArray() bool {
	return len(f.Dims) > 0
}

// Rank is the number of dimensions, at least 1.
func (f Field) Rank() int {
	if len(f.Dims) == 0 {
		return 1
	}
	return len(f.Dims)
}

// Extent is the number of flattened elements in the field. ok is false
// when the dims product does not fit in 32 bits.
func (f Field) Extent() (n uint32, ok bool) {
	n = 1
	for _, d := range f.Dims {
		if n, ok = abi.SafeMulU32(n, d); !ok {
			return 0, false
		}
	}
	return n, true
}

// Member is a named enum constant.
type Member struct {
	Name  string
	Value int64
}

// Catalog resolves type ids to layouts. Implementations must be safe for
// concurrent readers.
type Catalog interface {
	DataModel() DataModel
	DescribeType(cid ContainerID, tid TypeID) (TypeInfo, error)
	DescribeField(cid ContainerID, tid TypeID, i int) (Field, error)
	// IsFixedSize is true iff no heap allocation is reachable from an
	// instance of tid.
	IsFixedSize(cid ContainerID, tid TypeID) (bool, error)
}

// MemberLister is implemented by catalogs that keep enum member names.
type MemberLister interface {
	Members(cid ContainerID, tid TypeID) ([]Member, error)
}
