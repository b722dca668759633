package catalog

import (
	"math"
	"sync"

	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/internal/abi"
)

// Registry is an in-memory Catalog. Types may only reference atomics or
// types defined earlier in the same container, so the type graph is acyclic
// by construction.
type Registry struct {
	containers map[ContainerID]*container
	mu         sync.RWMutex
	next       ContainerID
	model      DataModel
}

type container struct {
	byName map[string]TypeID
	types  []*typeDef
}

type typeDef struct {
	fields  []Field
	members []Member
	info    TypeInfo
	fixed   bool
}

// NewRegistry creates an empty registry laying out pointer slots per model.
func NewRegistry(model DataModel) *Registry {
	return &Registry{
		containers: make(map[ContainerID]*container),
		next:       1,
		model:      model,
	}
}

func (r *Registry) DataModel() DataModel {
	return r.model
}

// NewContainer opens a fresh, empty type scope.
func (r *Registry) NewContainer() ContainerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	cid := r.next
	r.next++
	r.containers[cid] = &container{byName: make(map[string]TypeID)}
	return cid
}

func (r *Registry) container(cid ContainerID) (*container, error) {
	c, ok := r.containers[cid]
	if !ok {
		return nil, errors.New(errors.PhaseCatalog, errors.KindBadType).
			Detail("container %d not found", cid).
			Value(cid).
			Build()
	}
	return c, nil
}

func (c *container) lookup(tid TypeID) (*typeDef, bool) {
	i := int(tid - FirstUserType)
	if tid < FirstUserType || i >= len(c.types) {
		return nil, false
	}
	return c.types[i], true
}

// describe resolves atomics and user types; callers hold r.mu.
func (r *Registry) describe(cid ContainerID, tid TypeID) (TypeInfo, bool, error) {
	c, err := r.container(cid)
	if err != nil {
		return TypeInfo{}, false, err
	}
	if tid.IsAtomic() {
		size, _ := r.model.AtomicSize(tid)
		return TypeInfo{
			Name:  AtomicName(tid),
			ID:    tid,
			Size:  size,
			Class: ClassAtomic,
		}, tid != String, nil
	}
	def, ok := c.lookup(tid)
	if !ok {
		return TypeInfo{}, false, errors.BadType(errors.PhaseCatalog, int(cid), int(tid))
	}
	return def.info, def.fixed, nil
}

func (r *Registry) DescribeType(cid ContainerID, tid TypeID) (TypeInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, _, err := r.describe(cid, tid)
	return info, err
}

func (r *Registry) DescribeField(cid ContainerID, tid TypeID, i int) (Field, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, err := r.container(cid)
	if err != nil {
		return Field{}, err
	}
	def, ok := c.lookup(tid)
	if !ok {
		return Field{}, errors.BadType(errors.PhaseCatalog, int(cid), int(tid))
	}
	if def.info.Class != ClassCompound {
		return Field{}, errors.New(errors.PhaseCatalog, errors.KindInvalidArgument).
			Type(def.info.Name).
			Detail("%s is not a compound", def.info.Class).
			Build()
	}
	if i < 0 || i >= len(def.fields) {
		return Field{}, errors.New(errors.PhaseCatalog, errors.KindInvalidArgument).
			Type(def.info.Name).
			Detail("field index %d out of range (%d fields)", i, len(def.fields)).
			Build()
	}
	f := def.fields[i]
	f.Dims = append([]uint32(nil), f.Dims...)
	return f, nil
}

func (r *Registry) IsFixedSize(cid ContainerID, tid TypeID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, fixed, err := r.describe(cid, tid)
	return fixed, err
}

// Members lists the constants of an enum type.
func (r *Registry) Members(cid ContainerID, tid TypeID) ([]Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, err := r.container(cid)
	if err != nil {
		return nil, err
	}
	def, ok := c.lookup(tid)
	if !ok {
		return nil, errors.BadType(errors.PhaseCatalog, int(cid), int(tid))
	}
	if def.info.Class != ClassEnum {
		return nil, errors.New(errors.PhaseCatalog, errors.KindInvalidArgument).
			Type(def.info.Name).
			Detail("%s is not an enum", def.info.Class).
			Build()
	}
	return append([]Member(nil), def.members...), nil
}

// Fields returns a copy of a compound's field descriptors, dims included.
func (r *Registry) Fields(cid ContainerID, tid TypeID) ([]Field, error) {
	info, err := r.DescribeType(cid, tid)
	if err != nil {
		return nil, err
	}
	fields := make([]Field, info.FieldCount)
	for i := range fields {
		if fields[i], err = r.DescribeField(cid, tid, i); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// Lookup resolves a type name, atomics included.
func (r *Registry) Lookup(cid ContainerID, name string) (TypeID, error) {
	if id, ok := AtomicByName(name); ok {
		return id, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, err := r.container(cid)
	if err != nil {
		return Nat, err
	}
	id, ok := c.byName[name]
	if !ok {
		return Nat, errors.NotFound(errors.PhaseCatalog, "type", name)
	}
	return id, nil
}

// Types lists the user types of a container in definition order.
func (r *Registry) Types(cid ContainerID) ([]TypeInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, err := r.container(cid)
	if err != nil {
		return nil, err
	}
	out := make([]TypeInfo, len(c.types))
	for i, def := range c.types {
		out[i] = def.info
	}
	return out, nil
}

// DefineCompound registers a struct type with explicit field offsets.
// Every field must fit inside size; fields may be listed in any order.
func (r *Registry) DefineCompound(cid ContainerID, name string, size uint32, fields []Field) (TypeID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.beginDefine(cid, name)
	if err != nil {
		return Nat, err
	}
	if len(fields) == 0 {
		return Nat, invalidDef(name, "compound needs at least one field")
	}

	fixed := true
	seen := make(map[string]bool, len(fields))
	own := make([]Field, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return Nat, invalidDef(name, "field %d has no name", i)
		}
		if seen[f.Name] {
			return Nat, errors.New(errors.PhaseCatalog, errors.KindDuplicate).
				Type(name).
				Detail("field %q declared twice", f.Name).
				Build()
		}
		seen[f.Name] = true

		info, ffixed, err := r.describe(cid, f.Type)
		if err != nil {
			return Nat, errors.Within(err, f.Name)
		}
		fixed = fixed && ffixed

		extent := uint32(1)
		for _, d := range f.Dims {
			if d == 0 {
				return Nat, invalidDef(name, "field %q has a zero dimension", f.Name)
			}
			var ok bool
			if extent, ok = abi.SafeMulU32(extent, d); !ok {
				return Nat, errors.Overflow(errors.PhaseCatalog, "field "+f.Name+" extent")
			}
		}
		span, ok := abi.SafeMulU32(extent, info.Size)
		if ok {
			span, ok = abi.SafeAddU32(f.Offset, span)
		}
		if !ok || span > size {
			return Nat, invalidDef(name, "field %q [%d, +%d x %d) exceeds compound size %d",
				f.Name, f.Offset, extent, info.Size, size)
		}

		own[i] = Field{
			Name:   f.Name,
			Dims:   append([]uint32(nil), f.Dims...),
			Offset: f.Offset,
			Type:   f.Type,
		}
	}

	return c.add(name, &typeDef{
		info: TypeInfo{
			Name:       name,
			Size:       size,
			FieldCount: len(own),
			Class:      ClassCompound,
		},
		fields: own,
		fixed:  fixed,
	}), nil
}

// DefineVlen registers a variable-length sequence of base.
func (r *Registry) DefineVlen(cid ContainerID, name string, base TypeID) (TypeID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.beginDefine(cid, name)
	if err != nil {
		return Nat, err
	}
	if _, _, err := r.describe(cid, base); err != nil {
		return Nat, err
	}
	return c.add(name, &typeDef{
		info: TypeInfo{
			Name:  name,
			Base:  base,
			Size:  r.model.VlenHeaderSize(),
			Class: ClassVlen,
		},
	}), nil
}

// DefineEnum registers an enum stored as the integer atomic base.
func (r *Registry) DefineEnum(cid ContainerID, name string, base TypeID, members []Member) (TypeID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.beginDefine(cid, name)
	if err != nil {
		return Nat, err
	}
	if !base.IsInteger() {
		return Nat, errors.New(errors.PhaseCatalog, errors.KindBadType).
			Type(name).
			Detail("enum base must be an integer atomic, got type %d", base).
			Build()
	}
	size, _ := r.model.AtomicSize(base)
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m.Name == "" || seen[m.Name] {
			return Nat, invalidDef(name, "enum member %q is empty or repeated", m.Name)
		}
		seen[m.Name] = true
		if !fitsInteger(base, size, m.Value) {
			return Nat, invalidDef(name, "enum member %s=%d does not fit %s", m.Name, m.Value, AtomicName(base))
		}
	}
	return c.add(name, &typeDef{
		info: TypeInfo{
			Name:  name,
			Base:  base,
			Size:  size,
			Class: ClassEnum,
		},
		members: append([]Member(nil), members...),
		fixed:   true,
	}), nil
}

// DefineOpaque registers a fixed-size uninterpreted blob.
func (r *Registry) DefineOpaque(cid ContainerID, name string, size uint32) (TypeID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.beginDefine(cid, name)
	if err != nil {
		return Nat, err
	}
	if size == 0 {
		return Nat, invalidDef(name, "opaque size must be positive")
	}
	return c.add(name, &typeDef{
		info: TypeInfo{
			Name:  name,
			Size:  size,
			Class: ClassOpaque,
		},
		fixed: true,
	}), nil
}

func (r *Registry) beginDefine(cid ContainerID, name string) (*container, error) {
	c, err := r.container(cid)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.InvalidArgument(errors.PhaseCatalog, "type name is empty")
	}
	if _, ok := AtomicByName(name); ok {
		return nil, errors.New(errors.PhaseCatalog, errors.KindDuplicate).
			Type(name).
			Detail("name is reserved for an atomic type").
			Build()
	}
	if _, ok := c.byName[name]; ok {
		return nil, errors.New(errors.PhaseCatalog, errors.KindDuplicate).
			Type(name).
			Detail("type already defined").
			Build()
	}
	return c, nil
}

func (c *container) add(name string, def *typeDef) TypeID {
	id := FirstUserType + TypeID(len(c.types))
	def.info.ID = id
	c.types = append(c.types, def)
	c.byName[name] = id
	return id
}

func invalidDef(name, format string, args ...any) *errors.Error {
	return errors.New(errors.PhaseCatalog, errors.KindInvalidArgument).
		Type(name).
		Detail(format, args...).
		Build()
}

func fitsInteger(base TypeID, size uint32, v int64) bool {
	bits := size * 8
	if base.IsSigned() {
		if bits == 64 {
			return true
		}
		lim := int64(1) << (bits - 1)
		return v >= -lim && v < lim
	}
	if v < 0 {
		return false
	}
	if bits == 64 {
		return true
	}
	return uint64(v) <= math.MaxUint64>>(64-bits)
}
