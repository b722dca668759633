// Package errors provides structured error types for the typedmem module.
//
// Errors are categorized by Phase (which operation failed) and Kind (error category).
// The Error type carries the field path inside the instance, the type name, and a
// cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCopy, errors.KindBadValue).
//		Path("b", "[1]").
//		Type("vlen<string>").
//		Detail("vlen length %d with null pointer", 3).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.BadType(errors.PhaseReclaim, cid, tid)
//	err := errors.AllocationFailed(errors.PhaseCopy, 64, 8, cause)
//
// The four contract codes have phase-less sentinels, so callers can test
//
//	errors.Is(err, errors.ErrBadType)
//
// without caring which walker produced the error.
package errors
