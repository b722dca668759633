// Package value converts between Go values and packed instances.
//
// Go values follow these conventions:
//
//	integer atomics   any Go integer, an integral float, or a numeric string
//	CHAR              a one-byte string or a small integer
//	FLOAT, DOUBLE     any Go number
//	STRING            string, []byte, or nil for the null string
//	ENUM              a member name or the integer value
//	OPAQUE            []byte or a hex string of exactly the type size
//	VLEN              any slice, nil for the empty sequence
//	COMPOUND          map[string]any keyed by field name; missing fields
//	                  stay zero. Array fields take either nested slices
//	                  following the dimensions or one flat slice.
//
// Load returns the canonical form of each: sized Go integers, float32 and
// float64, string or nil, member names for known enum values, []byte,
// []any and map[string]any.
package value
