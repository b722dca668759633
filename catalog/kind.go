package catalog

// ContainerID identifies the schema whose registry resolves type ids.
type ContainerID int32

// TypeID names a type inside one container. Ids up to MaxAtomic are the
// built-in atomics shared by every container; user types start at
// FirstUserType.
type TypeID int32

const (
	Nat    TypeID = 0
	Byte   TypeID = 1
	Char   TypeID = 2
	Short  TypeID = 3
	Int    TypeID = 4
	Float  TypeID = 5
	Double TypeID = 6
	UByte  TypeID = 7
	UShort TypeID = 8
	UInt   TypeID = 9
	Int64  TypeID = 10
	UInt64 TypeID = 11
	String TypeID = 12

	MaxAtomic     = String
	FirstUserType TypeID = 32
)

var atomicNames = [...]string{
	Byte:   "byte",
	Char:   "char",
	Short:  "short",
	Int:    "int",
	Float:  "float",
	Double: "double",
	UByte:  "ubyte",
	UShort: "ushort",
	UInt:   "uint",
	Int64:  "int64",
	UInt64: "uint64",
	String: "string",
}

// IsAtomic reports whether id is one of the built-in atomic types.
func (id TypeID) IsAtomic() bool {
	return id >= Byte && id <= MaxAtomic
}

// IsInteger reports whether id is an integer atomic, i.e. a legal enum base.
func (id TypeID) IsInteger() bool {
	switch id {
	case Byte, Short, Int, UByte, UShort, UInt, Int64, UInt64:
		return true
	}
	return false
}

// IsSigned reports whether id is a signed integer atomic.
func (id TypeID) IsSigned() bool {
	switch id {
	case Byte, Short, Int, Int64:
		return true
	}
	return false
}

// AtomicName returns the CDL name of an atomic type, or "" for user types.
func AtomicName(id TypeID) string {
	if !id.IsAtomic() {
		return ""
	}
	return atomicNames[id]
}

// AtomicByName resolves a CDL atomic name.
func AtomicByName(name string) (TypeID, bool) {
	for id := Byte; id <= MaxAtomic; id++ {
		if atomicNames[id] == name {
			return id, true
		}
	}
	return Nat, false
}

// Class is the closed set of type shapes.
type Class uint8

const (
	ClassAtomic Class = iota
	ClassCompound
	ClassVlen
	ClassEnum
	ClassOpaque
)

var classNames = [...]string{
	ClassAtomic:   "atomic",
	ClassCompound: "compound",
	ClassVlen:     "vlen",
	ClassEnum:     "enum",
	ClassOpaque:   "opaque",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// ParseClass is the inverse of Class.String.
func ParseClass(s string) (Class, bool) {
	for c, name := range classNames {
		if name == s {
			return Class(c), true
		}
	}
	return 0, false
}
