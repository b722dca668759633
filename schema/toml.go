package schema

import (
	"github.com/BurntSushi/toml"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
)

// File is the TOML schema document.
type File struct {
	Model string     `toml:"model"`
	Types []TypeDecl `toml:"type"`
}

// TypeDecl declares one user type. Base names the vlen element type or
// the enum integer type; Size is required for opaques and optional for
// compounds.
type TypeDecl struct {
	Size    *uint32      `toml:"size"`
	Name    string       `toml:"name"`
	Class   string       `toml:"class"`
	Base    string       `toml:"base"`
	Fields  []FieldDecl  `toml:"field"`
	Members []MemberDecl `toml:"member"`
}

type FieldDecl struct {
	Offset *uint32  `toml:"offset"`
	Name   string   `toml:"name"`
	Type   string   `toml:"type"`
	Dims   []uint32 `toml:"dims"`
}

type MemberDecl struct {
	Name  string `toml:"name"`
	Value int64  `toml:"value"`
}

// ParseTOML decodes a TOML schema and defines its types in a new
// container.
func ParseTOML(data []byte, opts ...Option) (*Schema, error) {
	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindBadValue, err, "parse TOML schema")
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return nil, errors.New(errors.PhaseSchema, errors.KindBadValue).
			Detail("unknown schema key %s", keys[0]).
			Build()
	}
	return f.Build(opts...)
}

// Build defines the declared types, in order, in a new container.
func (f *File) Build(opts ...Option) (*Schema, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	model := o.model
	if !o.modelSet {
		var err error
		if model, err = catalog.ParseDataModel(f.Model); err != nil {
			return nil, err
		}
	}

	s := newSchema(model)
	for _, decl := range f.Types {
		if err := s.define(decl); err != nil {
			return nil, errors.Within(err, decl.Name)
		}
	}
	return s, nil
}

func (s *Schema) define(d TypeDecl) error {
	class, ok := catalog.ParseClass(d.Class)
	if !ok {
		return errors.New(errors.PhaseSchema, errors.KindInvalidArgument).
			Type(d.Name).
			Detail("unknown class %q", d.Class).
			Build()
	}
	reg, cid := s.Registry, s.Container
	var err error

	switch class {
	case catalog.ClassCompound:
		fields := make([]placement, len(d.Fields))
		for i, fd := range d.Fields {
			tid, err := s.Lookup(fd.Type)
			if err != nil {
				return errors.Within(err, fd.Name)
			}
			fields[i].field = catalog.Field{Name: fd.Name, Dims: fd.Dims, Type: tid}
			if fd.Offset != nil {
				fields[i].field.Offset = *fd.Offset
				fields[i].explicit = true
			}
		}
		placed, size, err := s.place(d.Name, fields, d.Size)
		if err != nil {
			return err
		}
		_, err = reg.DefineCompound(cid, d.Name, size, placed)
		return err

	case catalog.ClassVlen:
		base, err := s.Lookup(d.Base)
		if err != nil {
			return err
		}
		_, err = reg.DefineVlen(cid, d.Name, base)
		return err

	case catalog.ClassEnum:
		base := catalog.Int
		if d.Base != "" {
			if base, err = s.Lookup(d.Base); err != nil {
				return err
			}
		}
		members := make([]catalog.Member, len(d.Members))
		for i, m := range d.Members {
			members[i] = catalog.Member{Name: m.Name, Value: m.Value}
		}
		_, err = reg.DefineEnum(cid, d.Name, base, members)
		return err

	case catalog.ClassOpaque:
		if d.Size == nil {
			return errors.New(errors.PhaseSchema, errors.KindInvalidArgument).
				Type(d.Name).
				Detail("opaque type needs a size").
				Build()
		}
		_, err = reg.DefineOpaque(cid, d.Name, *d.Size)
		return err
	}
	return errors.New(errors.PhaseSchema, errors.KindInvalidArgument).
		Type(d.Name).
		Detail("class %s cannot be declared", class).
		Build()
}
