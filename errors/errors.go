package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCatalog Phase = "catalog" // type lookup and registration
	PhaseLayout  Phase = "layout"  // alignment and cursor arithmetic
	PhaseReclaim Phase = "reclaim" // deep free
	PhaseCopy    Phase = "copy"    // deep copy
	PhaseDump    Phase = "dump"    // text rendering
	PhaseAlloc   Phase = "alloc"   // heap bookkeeping
	PhaseMemory  Phase = "memory"  // raw reads and writes
	PhaseStore   Phase = "store"   // Go value to memory
	PhaseLoad    Phase = "load"    // memory to Go value
	PhaseSchema  Phase = "schema"  // schema files and imports
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindBadType         Kind = "bad_type"
	KindOutOfMemory     Kind = "out_of_memory"
	KindBadValue        Kind = "bad_value"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindOverflow        Kind = "overflow"
	KindUnsupported     Kind = "unsupported"
	KindNotFound        Kind = "not_found"
	KindTypeMismatch    Kind = "type_mismatch"
	KindDuplicate       Kind = "duplicate"
)

// Sentinels for errors.Is. They carry no Phase, so they match any phase.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrBadType         = &Error{Kind: KindBadType}
	ErrOutOfMemory     = &Error{Kind: KindOutOfMemory}
	ErrBadValue        = &Error{Kind: KindBadValue}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(joinPath(e.Path))
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// joinPath renders index segments ("[3]") without a leading dot.
func joinPath(path []string) string {
	var b strings.Builder
	for i, p := range path {
		if i > 0 && !strings.HasPrefix(p, "[") {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a Phase
// matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Type sets the offending type name
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidArgument reports a bad top-level argument
func InvalidArgument(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArgument,
		Detail: detail,
	}
}

// BadType reports a type id that the catalog cannot resolve
func BadType(phase Phase, container int, id int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBadType,
		Detail: fmt.Sprintf("type %d not defined in container %d", id, container),
		Value:  id,
	}
}

// BadValue reports malformed instance data
func BadValue(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBadValue,
		Path:   path,
		Detail: detail,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfMemory,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// OutOfBounds creates a memory access error
func OutOfBounds(phase Phase, offset, length uint32, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access [%d, %d) outside memory of %d bytes", offset, uint64(offset)+uint64(length), size),
		Value:  offset,
	}
}

// Overflow creates an arithmetic overflow error
func Overflow(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: what + " overflows 32-bit address space",
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// TypeMismatch reports a Go value that does not fit the target type
func TypeMismatch(phase Phase, path []string, goType, typeName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Type:   typeName,
		Detail: "cannot use Go " + goType,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Within prepends a path segment to err if it is an *Error; other errors
// pass through untouched.
func Within(err error, segment string) error {
	if e, ok := err.(*Error); ok {
		e.Path = append([]string{segment}, e.Path...)
	}
	return err
}

// WithinIndex prepends an index segment such as "[3]".
func WithinIndex(err error, i uint32) error {
	return Within(err, "["+strconv.FormatUint(uint64(i), 10)+"]")
}
