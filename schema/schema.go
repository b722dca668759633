package schema

import (
	"os"
	"path/filepath"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/internal/abi"
	"github.com/wippyai/typedmem/layout"
)

// Schema is one catalog container built from a schema source.
type Schema struct {
	Registry  *catalog.Registry
	Resolver  *layout.Resolver
	Skipped   map[string]error // WIT types with no catalog counterpart
	aliases   map[string]catalog.TypeID
	Container catalog.ContainerID
}

// Option configures schema loading.
type Option func(*options)

type options struct {
	model    catalog.DataModel
	modelSet bool
}

// WithModel forces the data model. TOML schemas otherwise use their
// model key (lp64 by default) and WIT imports use ilp32.
func WithModel(m catalog.DataModel) Option {
	return func(o *options) {
		o.model = m
		o.modelSet = true
	}
}

func newSchema(model catalog.DataModel) *Schema {
	reg := catalog.NewRegistry(model)
	return &Schema{
		Registry:  reg,
		Resolver:  layout.NewResolver(reg),
		Skipped:   make(map[string]error),
		aliases:   make(map[string]catalog.TypeID),
		Container: reg.NewContainer(),
	}
}

// Open loads a schema file: .toml files as TOML schemas, .json files as
// wasm-tools WIT JSON.
func Open(path string, opts ...Option) (*Schema, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseSchema, errors.KindNotFound, err, "read schema")
		}
		return ParseTOML(data, opts...)
	case ".json":
		res, err := wit.LoadJSON(path)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseSchema, errors.KindBadValue, err, "decode WIT JSON")
		}
		return FromWIT(res, opts...)
	}
	return nil, errors.Unsupported(errors.PhaseSchema, "schema file type "+filepath.Ext(path))
}

// Lookup resolves a type name, atomics and WIT aliases included.
func (s *Schema) Lookup(name string) (catalog.TypeID, error) {
	if id, ok := s.aliases[name]; ok {
		return id, nil
	}
	return s.Registry.Lookup(s.Container, name)
}

// Types lists the user types in definition order.
func (s *Schema) Types() []catalog.TypeInfo {
	types, _ := s.Registry.Types(s.Container)
	return types
}

// placement is a compound field whose offset may still be unknown.
type placement struct {
	field    catalog.Field
	explicit bool
}

// place assigns C-style offsets to fields without one and returns the
// compound size: the end of the furthest field rounded up to the largest
// field alignment, unless size is given.
func (s *Schema) place(name string, fields []placement, size *uint32) ([]catalog.Field, uint32, error) {
	out := make([]catalog.Field, len(fields))
	var end uint32
	maxAlign := uint32(1)
	for i, p := range fields {
		f := p.field
		info, err := s.Registry.DescribeType(s.Container, f.Type)
		if err != nil {
			return nil, 0, errors.Within(err, f.Name)
		}
		align, err := s.Resolver.AlignmentOf(s.Container, f.Type)
		if err != nil {
			return nil, 0, errors.Within(err, f.Name)
		}
		maxAlign = max(maxAlign, align)

		if !p.explicit {
			off, ok := abi.AlignTo(end, align)
			if !ok {
				return nil, 0, errors.Overflow(errors.PhaseSchema, name+"."+f.Name+" offset")
			}
			f.Offset = off
		}
		extent, ok := uint32(1), true
		for _, d := range f.Dims {
			if ok {
				extent, ok = abi.SafeMulU32(extent, d)
			}
		}
		span := uint32(0)
		if ok {
			span, ok = abi.SafeMulU32(extent, info.Size)
		}
		if ok {
			span, ok = abi.SafeAddU32(f.Offset, span)
		}
		if !ok {
			return nil, 0, errors.Overflow(errors.PhaseSchema, name+"."+f.Name+" extent")
		}
		end = max(end, span)
		out[i] = f
	}
	if size != nil {
		return out, *size, nil
	}
	total, ok := abi.AlignTo(end, maxAlign)
	if !ok {
		return nil, 0, errors.Overflow(errors.PhaseSchema, name+" size")
	}
	return out, total, nil
}
