// Package layout provides alignment rules and the position cursor used to
// walk packed instances.
//
// # Alignment Rules
//
//	Type        LP64   ILP32
//	──────────────────────────
//	byte/char   1      1
//	short       2      2
//	int/float   4      4
//	int64/dbl   8      8
//	string      8      4   (pointer)
//	vlen        8      4   (pointer-aligned {len, p} header)
//	opaque      1      1
//	enum        alignment of its base
//	compound    alignment of its first field
//
// The atomic table is built once per process; Resolver memoizes compound
// results per (container, type).
//
// # Cursor
//
// A Cursor is a (base, offset) pair. Advance and AlignTo are checked against
// 32-bit overflow; bounds are enforced by the Memory the cursor addresses.
package layout
