package schema

import (
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/internal/abi"
)

// FromWIT imports every named type of a decoded WIT resolve into a new
// container. Types that cannot be represented are recorded in Skipped
// rather than failing the import.
func FromWIT(res *wit.Resolve, opts ...Option) (*Schema, error) {
	if res == nil {
		return nil, errors.InvalidArgument(errors.PhaseSchema, "nil WIT resolve")
	}
	o := options{model: catalog.ILP32}
	for _, opt := range opts {
		opt(&o)
	}
	s := newSchema(o.model)
	imp := &witImporter{s: s, done: make(map[*wit.TypeDef]catalog.TypeID)}
	for _, td := range res.TypeDefs {
		if td.Name == nil {
			continue
		}
		id, err := imp.typeDef(td)
		if err != nil {
			s.Skipped[*td.Name] = err
			continue
		}
		if _, err := s.Registry.Lookup(s.Container, *td.Name); err != nil {
			s.aliases[*td.Name] = id
		}
	}
	return s, nil
}

// ImportWIT maps a single WIT type into the schema and returns its id.
func (s *Schema) ImportWIT(t wit.Type) (catalog.TypeID, error) {
	imp := &witImporter{s: s, done: make(map[*wit.TypeDef]catalog.TypeID)}
	return imp.typ(t)
}

type witImporter struct {
	s    *Schema
	done map[*wit.TypeDef]catalog.TypeID
}

func (w *witImporter) typ(t wit.Type) (catalog.TypeID, error) {
	switch t := t.(type) {
	case wit.Bool, wit.U8:
		return catalog.UByte, nil
	case wit.S8:
		return catalog.Byte, nil
	case wit.U16:
		return catalog.UShort, nil
	case wit.S16:
		return catalog.Short, nil
	case wit.U32, wit.Char:
		return catalog.UInt, nil
	case wit.S32:
		return catalog.Int, nil
	case wit.U64:
		return catalog.UInt64, nil
	case wit.S64:
		return catalog.Int64, nil
	case wit.F32:
		return catalog.Float, nil
	case wit.F64:
		return catalog.Double, nil
	case wit.String:
		return catalog.String, nil
	case *wit.TypeDef:
		return w.typeDef(t)
	}
	return catalog.Nat, errors.Unsupported(errors.PhaseSchema, "WIT type "+witName(t))
}

func (w *witImporter) typeDef(td *wit.TypeDef) (catalog.TypeID, error) {
	if id, ok := w.done[td]; ok {
		return id, nil
	}
	id, err := w.define(td)
	if err != nil {
		return catalog.Nat, err
	}
	w.done[td] = id
	return id, nil
}

func (w *witImporter) define(td *wit.TypeDef) (catalog.TypeID, error) {
	s := w.s
	reg, cid := s.Registry, s.Container

	switch kind := td.Kind.(type) {
	case *wit.Record:
		fields := make([]placement, len(kind.Fields))
		for i, f := range kind.Fields {
			tid, err := w.typ(f.Type)
			if err != nil {
				return catalog.Nat, errors.Within(err, f.Name)
			}
			fields[i].field = catalog.Field{Name: f.Name, Type: tid}
		}
		return w.compound(typeDefName(td), fields)

	case *wit.Tuple:
		fields := make([]placement, len(kind.Types))
		parts := make([]string, len(kind.Types))
		for i, t := range kind.Types {
			tid, err := w.typ(t)
			if err != nil {
				return catalog.Nat, errors.WithinIndex(err, uint32(i))
			}
			name := "f" + strconv.Itoa(i)
			fields[i].field = catalog.Field{Name: name, Type: tid}
			parts[i] = w.name(tid)
		}
		name := typeDefName(td)
		if name == "" {
			name = "tuple<" + strings.Join(parts, ", ") + ">"
		}
		return w.compound(name, fields)

	case *wit.List:
		base, err := w.typ(kind.Type)
		if err != nil {
			return catalog.Nat, err
		}
		name := typeDefName(td)
		if name == "" {
			name = "list<" + w.name(base) + ">"
		}
		if id, err := reg.Lookup(cid, name); err == nil {
			return id, nil
		}
		return reg.DefineVlen(cid, name, base)

	case *wit.Enum:
		base := catalog.UInt
		switch n := len(kind.Cases); {
		case n <= 1<<8:
			base = catalog.UByte
		case n <= 1<<16:
			base = catalog.UShort
		}
		members := make([]catalog.Member, len(kind.Cases))
		for i, c := range kind.Cases {
			members[i] = catalog.Member{Name: c.Name, Value: int64(i)}
		}
		return reg.DefineEnum(cid, w.anonymous(td, "enum"), base, members)

	case *wit.Flags:
		size := flagsSize(len(kind.Flags))
		if size == 0 {
			return catalog.Nat, errors.Unsupported(errors.PhaseSchema, "flags without members")
		}
		return reg.DefineOpaque(cid, w.anonymous(td, "flags"), size)

	case wit.Type:
		// alias: the name resolves to the target type
		return w.typ(kind)
	}
	return catalog.Nat, errors.Unsupported(errors.PhaseSchema, "WIT "+witName(td.Kind))
}

func (w *witImporter) compound(name string, fields []placement) (catalog.TypeID, error) {
	s := w.s
	if len(fields) == 0 {
		return catalog.Nat, errors.Unsupported(errors.PhaseSchema, "record without fields")
	}
	if id, err := s.Registry.Lookup(s.Container, name); err == nil {
		return id, nil
	}
	placed, size, err := s.place(name, fields, nil)
	if err != nil {
		return catalog.Nat, err
	}
	return s.Registry.DefineCompound(s.Container, name, size, placed)
}

// name returns the catalog name of an already imported type.
func (w *witImporter) name(tid catalog.TypeID) string {
	info, err := w.s.Registry.DescribeType(w.s.Container, tid)
	if err != nil {
		return "?"
	}
	return info.Name
}

func (w *witImporter) anonymous(td *wit.TypeDef, kind string) string {
	if name := typeDefName(td); name != "" {
		return name
	}
	return kind + "#" + strconv.Itoa(len(w.done))
}

func typeDefName(td *wit.TypeDef) string {
	if td.Name == nil {
		return ""
	}
	return *td.Name
}

func witName(v any) string {
	name := strings.TrimPrefix(abi.TypeName(v), "*wit.")
	return strings.ToLower(strings.TrimPrefix(name, "wit."))
}

// flagsSize is the canonical ABI size of a flags value.
func flagsSize(n int) uint32 {
	switch {
	case n == 0:
		return 0
	case n <= 8:
		return 1
	case n <= 16:
		return 2
	}
	return uint32((n+31)/32) * 4
}
