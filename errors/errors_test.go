package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseCopy,
				Kind:   KindBadValue,
				Path:   []string{"pair", "b", "[1]"},
				Type:   "vlen<string>",
				Detail: "null pointer",
			},
			contains: []string{"[copy]", "bad_value", "pair.b[1]", "vlen<string>", "null pointer"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDump,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[dump]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseAlloc,
				Kind:   KindOutOfMemory,
				Detail: "arena full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[alloc]", "out_of_memory", "arena full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseCopy,
		Kind:  KindOutOfMemory,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not follow the cause chain")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseReclaim,
		Kind:  KindBadValue,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseReclaim, Kind: KindBadValue}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseCopy, Kind: KindBadValue}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseReclaim, Kind: KindBadType}) {
		t.Error("Is should not match different kind")
	}

	t.Run("sentinels", func(t *testing.T) {
		if !errors.Is(err, ErrBadValue) {
			t.Error("phase-less sentinel should match on kind")
		}
		if errors.Is(err, ErrBadType) {
			t.Error("sentinel with another kind should not match")
		}
		if !errors.Is(BadType(PhaseCopy, 1, 99), ErrBadType) {
			t.Error("BadType should match ErrBadType")
		}
	})
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseStore, KindTypeMismatch).
		Path("pair", "a").
		Type("int").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "int", "string").
		Build()

	if err.Phase != PhaseStore {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseStore)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "pair" || err.Path[1] != "a" {
		t.Errorf("Path = %v, want [pair a]", err.Path)
	}
	if err.Type != "int" {
		t.Errorf("Type = %v, want 'int'", err.Type)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected int, got string" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestWithin(t *testing.T) {
	err := error(BadValue(PhaseReclaim, nil, "vlen length 3 with null pointer"))
	err = WithinIndex(err, 1)
	err = Within(err, "b")

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("expected *Error")
	}
	if got := strings.Join(e.Path, ""); got != "b[1]" {
		t.Errorf("path = %q, want b[1]", got)
	}
	if !strings.Contains(err.Error(), "at b[1]") {
		t.Errorf("message %q should render the path", err.Error())
	}

	plain := errors.New("plain")
	if Within(plain, "x") != plain {
		t.Error("non-structured errors should pass through")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		err  *Error
		kind Kind
	}{
		{InvalidArgument(PhaseReclaim, "null buffer"), KindInvalidArgument},
		{BadType(PhaseCatalog, 1, 40), KindBadType},
		{BadValue(PhaseDump, []string{"x"}, "bad"), KindBadValue},
		{AllocationFailed(PhaseCopy, 16, 8, nil), KindOutOfMemory},
		{OutOfBounds(PhaseLoad, 10, 4, 12), KindOutOfBounds},
		{Overflow(PhaseLayout, "offset"), KindOverflow},
		{Unsupported(PhaseSchema, "variant"), KindUnsupported},
		{NotFound(PhaseSchema, "type", "Pair"), KindNotFound},
		{TypeMismatch(PhaseStore, nil, "bool", "int"), KindTypeMismatch},
		{Wrap(PhaseSchema, KindBadValue, errors.New("x"), "parse"), KindBadValue},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			if tc.err.Kind != tc.kind {
				t.Errorf("Kind = %v, want %v", tc.err.Kind, tc.kind)
			}
			if tc.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}
}
