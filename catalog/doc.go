// Package catalog defines the type model that drives the instance walkers.
//
// A type id is resolved inside a container to a TypeInfo: byte size, class,
// base type and field count. Five classes exist:
//
//	atomic    byte char short int float double ubyte ushort uint int64 uint64 string
//	compound  struct with catalog-defined field offsets (fields need not be contiguous)
//	vlen      inline {len, p} header owning a buffer of len base elements
//	enum      stored exactly like its integer base
//	opaque    fixed-size bytes
//
// STRING is the one atomic that owns heap memory: its slot holds null or a
// pointer to a NUL-terminated buffer. A type is fixed-size when neither a
// string nor a vlen is reachable from it; walkers use that as a fast path.
//
// Registry is the in-memory Catalog used by the schema loaders and tests.
// Types are defined in dependency order, so a registry can never describe a
// cyclic type graph.
package catalog
