// Package schema builds catalog containers from schema sources and reads
// value documents.
//
// Two schema sources are supported. TOML schema files declare types in
// order:
//
//	model = "lp64"
//
//	[[type]]
//	name = "strs"
//	class = "vlen"
//	base = "string"
//
//	[[type]]
//	name = "Pair"
//	class = "compound"
//	  [[type.field]]
//	  name = "a"
//	  type = "int"
//	  [[type.field]]
//	  name = "b"
//	  type = "strs"
//
// Compound offsets and sizes may be omitted; they are then placed the way
// a C compiler would, each field at the next offset aligned for its type.
//
// WIT packages, in the JSON form printed by wasm-tools, are imported with
// ImportWIT. Records and tuples become compounds, lists become vlens,
// enums become enums over the smallest unsigned base, flags become opaque
// bit sets. Variants, options, results and resources have no counterpart
// and are reported as skipped.
//
// Value documents hold instances for one type, as TOML or CBOR:
//
//	type = "Pair"
//	values = [{a = 42, b = ["hi", "there"]}]
package schema
